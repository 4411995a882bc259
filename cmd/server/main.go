// Package main runs the vesting service: the HTTP API over the engine, the
// websocket event stream, event fan-out to Kafka and ClickHouse, and the
// scheduled vesting snapshot job.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"solana-vesting/internal/api"
	"solana-vesting/internal/cache"
	"solana-vesting/internal/config"
	"solana-vesting/internal/logger"
	"solana-vesting/internal/notify"
	"solana-vesting/internal/observability"
	"solana-vesting/internal/pda"
	"solana-vesting/internal/reporting"
	"solana-vesting/internal/solana"
	"solana-vesting/internal/vesting"
)

const (
	shutdownTimeout = 30 * time.Second
	snapshotTimeout = 2 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg)
	log := logger.Component("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Server error")
	}
	log.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	programID := pda.DefaultVestingProgramID
	if cfg.ProgramID != "" {
		var err error
		if programID, err = pda.ParsePublicKey(cfg.ProgramID); err != nil {
			return fmt.Errorf("PROGRAM_ID: %w", err)
		}
	}

	st, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	clock, err := createClock(cfg)
	if err != nil {
		return err
	}

	// Event fan-out.
	hub := notify.NewHub(logger.Component("ws"))
	defer hub.Close()
	publishers := []notify.Publisher{hub}
	if len(cfg.KafkaBrokers) > 0 {
		kp := notify.NewKafkaPublisher(notify.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer kp.Close()
		publishers = append(publishers, kp)
		log.WithField("topic", cfg.KafkaTopic).Info("Kafka publisher enabled")
	}
	if st.claimEvents != nil {
		publishers = append(publishers, notify.NewClaimRecorder(st.claimEvents))
	}
	dispatcher := notify.NewDispatcher(cfg.EventBufferSize, logger.Component("notify"), publishers...)

	var dispatchWG sync.WaitGroup
	dispatchWG.Add(1)
	go func() {
		defer dispatchWG.Done()
		// Drained on Close, not on ctx, so events committed during
		// shutdown still reach the publishers.
		dispatcher.Run(context.Background())
	}()
	defer func() {
		dispatcher.Close()
		dispatchWG.Wait()
	}()

	opts := []vesting.Option{
		vesting.WithClock(clock),
		vesting.WithEventSink(dispatcher),
		vesting.WithLogger(logger.Component("vesting")),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable, pool cache will fall back to the store")
		}
		opts = append(opts, vesting.WithPoolLookup(cache.NewPoolCache(rdb, st.vesting.Pools(), cfg.PoolCacheTTL, logger.Component("cache"))))
	}
	engine := vesting.NewEngine(st.vesting, pda.NewDeriver(programID), opts...)

	if st.snapshots != nil {
		scheduler, err := startSnapshots(cfg.SnapshotCron, engine, st, clock)
		if err != nil {
			return err
		}
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.Handle("GET /ws/events", hub.Handler())
	api.NewServer(engine, logger.Component("api")).Register(mux)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Middleware(logger.Component("http"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.HTTPAddr,
			"program": programID.String(),
			"memory":  cfg.UseMemory,
			"clock":   cfg.ClockSource,
		}).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func createClock(cfg *config.Config) (vesting.Clock, error) {
	switch cfg.ClockSource {
	case config.ClockChain:
		rpc := solana.NewHTTPClient(cfg.SolanaRPCEndpoint,
			solana.WithCommitment("confirmed"),
			solana.WithLogger(logger.Component("rpc")),
		)
		return solana.NewChainClock(rpc), nil
	case config.ClockSystem:
		return vesting.SystemClock{}, nil
	default:
		return nil, fmt.Errorf("unknown clock source %q", cfg.ClockSource)
	}
}

func startSnapshots(cronExpr string, engine *vesting.Engine, st *stores, clock vesting.Clock) (*cron.Cron, error) {
	log := logger.Component("snapshots")
	snapshotter := reporting.NewSnapshotter(reporting.NewGenerator(engine), st.snapshots, clock, log)

	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		_, _ = snapshotter.Run(ctx) // failures are logged and counted by Run
	})
	if err != nil {
		return nil, fmt.Errorf("schedule snapshots %q: %w", cronExpr, err)
	}
	c.Start()
	log.WithField("cron", cronExpr).Info("Snapshot job scheduled")
	return c, nil
}
