package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/kozaktomas/face-attend/internal/ledger"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Device:  config.DeviceConfig{ID: "test-device"},
		Central: config.CentralConfig{SyncIntervalSeconds: 30},
	}
}

// newTestLedger opens a throwaway attendance ledger.
func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	led, err := ledger.Open(filepath.Join(t.TempDir(), "attendance.db"))
	if err != nil {
		t.Fatalf("failed to open test ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	return led
}

// newTestStore writes gallery artifacts to a temp dir and loads them.
func newTestStore(t *testing.T, names []string, vectors [][]float32) *gallery.Store {
	t.Helper()
	dir := t.TempDir()
	embeddingsPath := filepath.Join(dir, "embeddings.bin")
	namesPath := filepath.Join(dir, "names.json")
	if err := gallery.WriteEmbeddings(embeddingsPath, vectors); err != nil {
		t.Fatalf("failed to write embeddings: %v", err)
	}
	if err := gallery.WriteNames(namesPath, names); err != nil {
		t.Fatalf("failed to write names: %v", err)
	}
	store := gallery.NewStore(embeddingsPath, namesPath, false)
	if err := store.Load(); err != nil {
		t.Fatalf("failed to load gallery: %v", err)
	}
	return store
}

// stubPinger reports a fixed engine reachability.
type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

// stubSyncer returns canned sync results.
type stubSyncer struct {
	count int
	err   error
	calls int
}

func (s *stubSyncer) RunOnce(ctx context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
