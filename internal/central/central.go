// Package central talks to the shared attendance database that every
// device syncs into. Connections fail fast: a device on a flaky uplink
// must not stall waiting for the network.
package central

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attend/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS attendance_log (
	id         BIGINT AUTO_INCREMENT PRIMARY KEY,
	event_uuid CHAR(36) NOT NULL,
	timestamp  DATETIME NOT NULL,
	device_id  VARCHAR(64) NOT NULL,
	name       VARCHAR(255) NOT NULL,
	synced     TINYINT(1) NOT NULL DEFAULT 1,
	UNIQUE KEY uniq_event_uuid (event_uuid)
)`

// datetimeLayout is the DATETIME literal format the central store accepts.
const datetimeLayout = "2006-01-02 15:04:05"

// Pool manages the central MySQL connection pool.
type Pool struct {
	db *sql.DB
}

// Dial opens the central store and verifies it answers within timeout.
// The short ping bound is what keeps a sync attempt from hanging when
// the uplink is down.
func Dial(ctx context.Context, dsn string, timeout time.Duration) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("central store DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open central store: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("central store unreachable: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing central store connection: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the attendance table when it does not exist.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create attendance table: %w", err)
	}
	return nil
}

// InsertBatch writes the records inside one transaction. A replayed
// event (same event UUID, possible after an interrupted earlier sync)
// collapses onto the existing row instead of duplicating it.
func (p *Pool) InsertBatch(ctx context.Context, records []ledger.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance_log (event_uuid, timestamp, device_id, name, synced)
		VALUES (?, ?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE synced = 1`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx, rec.EventID, FormatTimestamp(rec.Timestamp), rec.DeviceID, rec.Name)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", rec.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Count returns the number of rows in the attendance table.
func (p *Pool) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attendance rows: %w", err)
	}
	return n, nil
}

// FormatTimestamp renders an epoch-seconds ledger timestamp as a UTC
// DATETIME literal. Sub-second precision is dropped; the event UUID
// carries identity, not the timestamp.
func FormatTimestamp(epochSeconds float64) string {
	return time.Unix(int64(epochSeconds), 0).UTC().Format(datetimeLayout)
}
