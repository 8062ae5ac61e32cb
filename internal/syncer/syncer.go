// Package syncer drains the local attendance ledger into the central
// store. Sync is deliberately coarse: one short-lived connection per
// cycle, whole batches or nothing, and local rows flip to synced only
// after the central commit.
package syncer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kozaktomas/face-attend/internal/central"
	"github.com/kozaktomas/face-attend/internal/ledger"
)

const (
	defaultBatchSize      = 50
	defaultConnectTimeout = 2 * time.Second
	defaultInterval       = 30 * time.Second
)

// Config bounds a sync cycle.
type Config struct {
	DSN            string
	BatchSize      int
	ConnectTimeout time.Duration
	Interval       time.Duration
}

// Engine pushes unsynced ledger records upstream.
type Engine struct {
	ledger *ledger.Ledger
	cfg    Config
}

// New creates a sync engine over the given ledger. Zero config fields
// fall back to the defaults (batch 50, 2s connect timeout, 30s cadence).
func New(l *ledger.Ledger, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	return &Engine{ledger: l, cfg: cfg}
}

// RunOnce pushes at most one batch and returns how many records it
// synced. The idle case reads only the local ledger; the central store
// is dialed just when there is something to push. An unreachable store
// aborts the cycle with every record left unsynced, safe to retry.
func (e *Engine) RunOnce(ctx context.Context) (int, error) {
	records, err := e.ledger.Unsynced(ctx, e.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("reading unsynced records: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	pool, err := central.Dial(ctx, e.cfg.DSN, e.cfg.ConnectTimeout)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	if err := pool.InsertBatch(ctx, records); err != nil {
		return 0, fmt.Errorf("pushing batch: %w", err)
	}

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	// A failure here re-sends the batch next cycle; the event UUIDs
	// make the replay collapse centrally.
	if err := e.ledger.MarkSynced(ctx, ids); err != nil {
		return 0, fmt.Errorf("marking records synced: %w", err)
	}

	return len(records), nil
}

// Run drives RunOnce on the configured cadence until ctx is canceled.
// Cycle failures are logged and retried on the next tick.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.RunOnce(ctx)
			if err != nil {
				log.Printf("sync failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("synced %d attendance records", n)
			}
		}
	}
}
