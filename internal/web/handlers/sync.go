package handlers

import (
	"context"
	"log"
	"net/http"
)

// SyncRunner pushes unsynced attendance records to the central database.
type SyncRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// SyncHandler triggers attendance synchronization on demand.
type SyncHandler struct {
	runner SyncRunner
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(runner SyncRunner) *SyncHandler {
	return &SyncHandler{runner: runner}
}

// Trigger runs one synchronization pass and reports how many records moved.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "no central database configured")
		return
	}

	count, err := h.runner.RunOnce(r.Context())
	if err != nil {
		log.Printf("Sync failed: %v", err)
		respondError(w, http.StatusServiceUnavailable, "central database unreachable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"synced": count})
}
