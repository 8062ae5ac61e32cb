package ledger

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLogAppendsRecord(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	before := float64(time.Now().UnixNano()) / 1e9
	rec, err := l.Log(ctx, "door-01", "alice")
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	after := float64(time.Now().UnixNano()) / 1e9

	if rec.ID == 0 {
		t.Error("record has no id")
	}
	if _, err := uuid.Parse(rec.EventID); err != nil {
		t.Errorf("event id %q is not a UUID: %v", rec.EventID, err)
	}
	if rec.Timestamp < before || rec.Timestamp > after {
		t.Errorf("timestamp %f outside [%f, %f]", rec.Timestamp, before, after)
	}
	if rec.Synced {
		t.Error("fresh record must start unsynced")
	}
}

func TestLogAssignsUniqueEventIDs(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	first, err := l.Log(ctx, "door-01", "alice")
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	second, err := l.Log(ctx, "door-01", "alice")
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	if first.EventID == second.EventID {
		t.Errorf("two records share event id %q", first.EventID)
	}
}

func TestUnsyncedOldestFirstWithLimit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	names := []string{"alice", "bob", "carol", "dave", "erin"}
	for _, name := range names {
		if _, err := l.Log(ctx, "door-01", name); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	records, err := l.Unsynced(ctx, 3)
	if err != nil {
		t.Fatalf("Unsynced failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range names[:3] {
		if records[i].Name != want {
			t.Errorf("record %d = %q; want %q (oldest first)", i, records[i].Name, want)
		}
	}
	if records[0].ID > records[1].ID || records[1].ID > records[2].ID {
		t.Error("records are not in insertion order")
	}
}

func TestUnsyncedNonPositiveLimit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	if _, err := l.Log(ctx, "door-01", "alice"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	records, err := l.Unsynced(ctx, 0)
	if err != nil {
		t.Fatalf("Unsynced failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records for limit 0, want 0", len(records))
	}
}

func TestMarkSynced(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"alice", "bob", "carol"} {
		rec, err := l.Log(ctx, "door-01", name)
		if err != nil {
			t.Fatalf("Log failed: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	if err := l.MarkSynced(ctx, []int64{ids[0], ids[2]}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	records, err := l.Unsynced(ctx, 10)
	if err != nil {
		t.Fatalf("Unsynced failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "bob" {
		t.Errorf("unsynced = %+v; want only bob", records)
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Unsynced != 1 {
		t.Errorf("stats = %+v; want {Total:3 Unsynced:1}", stats)
	}
}

func TestMarkSyncedEmpty(t *testing.T) {
	l := openTestLedger(t)

	if err := l.MarkSynced(context.Background(), nil); err != nil {
		t.Errorf("MarkSynced(nil) failed: %v", err)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := l.Log(ctx, "door-01", name); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	recs, err := l.Unsynced(ctx, 1)
	if err != nil {
		t.Fatalf("Unsynced failed: %v", err)
	}
	if err := l.MarkSynced(ctx, []int64{recs[0].ID}); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	records, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Name != "carol" || records[1].Name != "bob" {
		t.Errorf("recent = [%q %q]; want [carol bob]", records[0].Name, records[1].Name)
	}

	// Recent includes synced records too.
	all, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}
	if !all[2].Synced {
		t.Error("oldest record should be flagged synced")
	}
}

func TestLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")
	ctx := context.Background()

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := l.Log(ctx, "door-01", "alice"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	stats, err := reopened.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 || stats.Unsynced != 1 {
		t.Errorf("stats after reopen = %+v; want {Total:1 Unsynced:1}", stats)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty ledger path")
	}
}

func TestRecordTime(t *testing.T) {
	rec := Record{Timestamp: 1700000000.5}

	got := rec.Time()
	if got.Unix() != 1700000000 {
		t.Errorf("seconds = %d; want 1700000000", got.Unix())
	}
	if ns := got.Nanosecond(); math.Abs(float64(ns)-5e8) > 1e3 {
		t.Errorf("nanoseconds = %d; want ~500000000", ns)
	}
}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()

	l, err := Open(filepath.Join(t.TempDir(), "attendance.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}
