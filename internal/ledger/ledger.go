// Package ledger is the device's local source of truth for attendance
// events. Every confirmed sighting is appended to an embedded SQLite
// store first; the sync engine drains unsynced rows to the central
// store when the network allows.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_attendance (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_uuid TEXT NOT NULL,
	timestamp  REAL NOT NULL,
	device_id  TEXT NOT NULL,
	name       TEXT NOT NULL,
	synced     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_local_attendance_unsynced ON local_attendance (synced, id);
`

// Record is one attendance event. Timestamp is epoch seconds with
// sub-second precision. Synced flips to true exactly once, after the
// central store confirmed the row; there is no transition back.
type Record struct {
	ID        int64
	EventID   string
	Timestamp float64
	DeviceID  string
	Name      string
	Synced    bool
}

// Time converts the epoch-seconds timestamp to a time.Time.
func (r Record) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Ledger wraps the embedded attendance store.
type Ledger struct {
	db *sql.DB
}

// Open opens the ledger database at path, creating the schema when
// missing.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite allows one writer at a time; a single connection keeps
	// SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l.db != nil {
		if err := l.db.Close(); err != nil {
			return fmt.Errorf("closing ledger: %w", err)
		}
	}
	return nil
}

// Log appends one unsynced attendance record stamped with the current
// time and a fresh event UUID. It touches only the local filesystem and
// must stay callable while the network is down.
func (l *Ledger) Log(ctx context.Context, deviceID, name string) (Record, error) {
	rec := Record{
		EventID:   uuid.NewString(),
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		DeviceID:  deviceID,
		Name:      name,
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO local_attendance (event_uuid, timestamp, device_id, name, synced) VALUES (?, ?, ?, ?, 0)`,
		rec.EventID, rec.Timestamp, rec.DeviceID, rec.Name,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert attendance record: %w", err)
	}

	rec.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("read record id: %w", err)
	}
	return rec, nil
}

// Unsynced returns up to limit unsynced records, oldest first.
func (l *Ledger) Unsynced(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	return l.queryRecords(ctx,
		`SELECT id, event_uuid, timestamp, device_id, name, synced
		 FROM local_attendance WHERE synced = 0 ORDER BY id LIMIT ?`, limit)
}

// Recent returns the latest records, newest first, regardless of sync
// state.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	return l.queryRecords(ctx,
		`SELECT id, event_uuid, timestamp, device_id, name, synced
		 FROM local_attendance ORDER BY id DESC LIMIT ?`, limit)
}

// MarkSynced flips the given records to synced in a single statement.
// Callers invoke this only after the central store confirmed the batch.
func (l *Ledger) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`UPDATE local_attendance SET synced = 1 WHERE id IN (%s)`, placeholders)
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark records synced: %w", err)
	}
	return nil
}

// Stats reports how many records the ledger holds and how many still
// wait for sync.
type Stats struct {
	Total    int64
	Unsynced int64
}

// Stats counts ledger records.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(1 - synced), 0) FROM local_attendance`,
	).Scan(&s.Total, &s.Unsynced)
	if err != nil {
		return Stats{}, fmt.Errorf("count attendance records: %w", err)
	}
	return s, nil
}

func (l *Ledger) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Timestamp, &rec.DeviceID, &rec.Name, &rec.Synced); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
