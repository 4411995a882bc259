// Package main generates a one-shot vesting report: per-pool funding
// summaries and per-schedule snapshots, written as CSV and Markdown.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/logger"
	"solana-vesting/internal/onchain"
	"solana-vesting/internal/pda"
	"solana-vesting/internal/reporting"
	"solana-vesting/internal/solana"
	chstore "solana-vesting/internal/storage/clickhouse"
	"solana-vesting/internal/storage/memory"
	pgstore "solana-vesting/internal/storage/postgres"
	"solana-vesting/internal/vesting"
)

// demoNow is the evaluation time of the demo fixture.
const demoNow = 1_700_000_000

func main() {
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string; stores the snapshot when set")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC endpoint; reads deployed pools instead of the database")
	companies := flag.String("companies", "", "Comma-separated company names to read from chain (with --rpc-endpoint)")
	programID := flag.String("program-id", os.Getenv("PROGRAM_ID"), "Vesting program ID (base58)")
	at := flag.Int64("at", 0, "Evaluation time in Unix seconds (default: now)")
	demo := flag.Bool("demo", false, "Report on an in-memory demo fixture instead of real data")
	flag.Parse()

	ctx := context.Background()
	log := logger.Component("report")

	program := pda.DefaultVestingProgramID
	if *programID != "" {
		var err error
		if program, err = pda.ParsePublicKey(*programID); err != nil {
			fatalf("Invalid --program-id: %v", err)
		}
	}

	var (
		source  reporting.Source
		evalAt  = *at
		cleanup = func() {}
	)
	switch {
	case *demo:
		engine, err := demoEngine(ctx, program)
		if err != nil {
			fatalf("Error building demo fixture: %v", err)
		}
		source = engine
		if evalAt == 0 {
			evalAt = demoNow
		}
	case *rpcEndpoint != "":
		names := splitList(*companies)
		if len(names) == 0 {
			fatalf("--companies is required with --rpc-endpoint")
		}
		rpc := solana.NewHTTPClient(*rpcEndpoint, solana.WithCommitment("confirmed"), solana.WithLogger(log))
		inspector := onchain.NewInspector(rpc, program, log)
		source = onchain.NewCompanySource(inspector, names)
		if evalAt == 0 {
			now, err := solana.NewChainClock(rpc).Now(ctx)
			if err != nil {
				fatalf("Error reading chain time: %v", err)
			}
			evalAt = now
		}
	case *postgresDSN != "":
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fatalf("Error connecting to postgres: %v", err)
		}
		cleanup = pool.Close
		source = vesting.NewEngine(pgstore.NewStore(pool), pda.NewDeriver(program), vesting.WithLogger(log))
	default:
		fmt.Fprintln(os.Stderr, "Error: one of --demo, --rpc-endpoint or --postgres-dsn is required")
		os.Exit(1)
	}
	defer cleanup()

	if evalAt == 0 {
		evalAt = time.Now().Unix()
	}
	gen := reporting.NewGenerator(source)

	var (
		report *reporting.Report
		err    error
	)
	if *clickhouseDSN != "" {
		conn, cerr := chstore.NewConn(ctx, *clickhouseDSN)
		if cerr != nil {
			fatalf("Error connecting to clickhouse: %v", cerr)
		}
		defer conn.Close()
		report, err = reporting.NewSnapshotter(gen, chstore.NewSnapshotStore(conn), vesting.NewFixedClock(evalAt), log).Run(ctx)
	} else {
		report, err = gen.Generate(ctx, evalAt)
	}
	if err != nil {
		fatalf("Error generating report: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatalf("Error creating output directory: %v", err)
	}
	writers := map[string]func(io.Writer) error{
		"VESTING_REPORT.md": func(w io.Writer) error {
			_, err := io.WriteString(w, reporting.RenderMarkdown(report))
			return err
		},
		"pools.csv":     func(w io.Writer) error { return reporting.WritePoolsCSV(w, report.Pools) },
		"schedules.csv": func(w io.Writer) error { return reporting.WriteSchedulesCSV(w, report.Schedules) },
	}
	for _, name := range []string{"VESTING_REPORT.md", "pools.csv", "schedules.csv"} {
		path := filepath.Join(*outputDir, name)
		if err := writeFile(path, writers[name]); err != nil {
			fatalf("Error writing %s: %v", path, err)
		}
	}

	fmt.Printf("Vesting report at %d generated: %d pools, %d schedules\n", report.SnapshotAt, len(report.Pools), len(report.Schedules))
	for _, name := range []string{"VESTING_REPORT.md", "pools.csv", "schedules.csv"} {
		fmt.Printf("  - %s\n", filepath.Join(*outputDir, name))
	}
}

// writeFile creates path and fills it with write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// demoEngine builds an in-memory engine with one partially funded pool, two
// schedules and one claim.
func demoEngine(ctx context.Context, program pda.PublicKey) (*vesting.Engine, error) {
	clock := vesting.NewFixedClock(demoNow - 30*24*3600)
	engine := vesting.NewEngine(memory.NewStore(), pda.NewDeriver(program), vesting.WithClock(clock))

	operator := demoKey("operator")
	pool, err := engine.CreatePool(ctx, operator, "Acme", domain.Mint{Address: demoKey("mint"), Decimals: 6})
	if err != nil {
		return nil, err
	}
	if _, err := engine.Deposit(ctx, operator, pool.Address, 1_500_000_000); err != nil {
		return nil, err
	}

	start := int64(demoNow - 30*24*3600)
	alice, err := engine.CreateSchedule(ctx, operator, vesting.ScheduleParams{
		PoolAddress:     pool.Address,
		Beneficiary:     demoKey("alice"),
		StartTime:       start,
		CliffTime:       start + 7*24*3600,
		EndTime:         start + 90*24*3600,
		TotalAllocation: 1_200_000_000,
	})
	if err != nil {
		return nil, err
	}
	if _, err := engine.CreateSchedule(ctx, operator, vesting.ScheduleParams{
		PoolAddress:     pool.Address,
		Beneficiary:     demoKey("bob"),
		StartTime:       start,
		CliffTime:       start + 60*24*3600,
		EndTime:         start + 365*24*3600,
		TotalAllocation: 2_000_000_000,
	}); err != nil {
		return nil, err
	}

	if _, err := engine.Claim(ctx, demoKey("alice"), alice.Address, demoNow-10*24*3600); err != nil {
		return nil, err
	}
	return engine, nil
}

func demoKey(label string) string {
	return pda.PublicKey(sha256.Sum256([]byte("demo:" + label))).String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
