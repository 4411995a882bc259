package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-vesting/internal/observability"
	"solana-vesting/internal/storage"
	"solana-vesting/internal/vesting"
)

// Snapshotter periodically writes schedule snapshots to analytics storage.
type Snapshotter struct {
	gen   *Generator
	store storage.SnapshotStore
	clock vesting.Clock
	log   *logrus.Entry
}

// NewSnapshotter creates a snapshot job evaluating schedules at clock's time.
func NewSnapshotter(gen *Generator, store storage.SnapshotStore, clock vesting.Clock, log *logrus.Entry) *Snapshotter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Snapshotter{
		gen:   gen,
		store: store,
		clock: clock,
		log:   log.WithField("component", "snapshot"),
	}
}

// Run takes one snapshot of all schedules and stores it.
func (s *Snapshotter) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report, err := s.run(ctx)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		observability.RecordSnapshotRun("error", 0, elapsed, 0)
		s.log.WithError(err).Error("snapshot failed")
		return nil, err
	}

	observability.RecordSnapshotRun("success", len(report.Schedules), elapsed, time.Now().Unix())
	s.log.WithFields(logrus.Fields{
		"snapshot_at": report.SnapshotAt,
		"pools":       len(report.Pools),
		"schedules":   len(report.Schedules),
		"duration":    elapsed,
	}).Info("snapshot stored")
	return report, nil
}

func (s *Snapshotter) run(ctx context.Context) (*Report, error) {
	at, err := s.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clock: %w", err)
	}
	report, err := s.gen.Generate(ctx, at)
	if err != nil {
		return nil, err
	}
	if snaps := report.Snapshots(); len(snaps) > 0 {
		if err := s.store.InsertBulk(ctx, snaps); err != nil {
			return nil, fmt.Errorf("store %d snapshots: %w", len(snaps), err)
		}
	}
	return report, nil
}
