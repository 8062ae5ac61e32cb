package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attend/internal/ledger"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500
)

// AttendanceHandler exposes the local attendance ledger.
type AttendanceHandler struct {
	ledger *ledger.Ledger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(led *ledger.Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: led}
}

// AttendanceEntry represents one ledger record in API responses.
type AttendanceEntry struct {
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	Device    string `json:"device"`
	Timestamp string `json:"timestamp"`
	Synced    bool   `json:"synced"`
}

// Recent returns the newest attendance records, newest first.
func (h *AttendanceHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxRecentLimit)
	}

	records, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to read attendance records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance ledger")
		return
	}

	entries := make([]AttendanceEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, AttendanceEntry{
			EventID:   rec.EventID,
			Name:      rec.Name,
			Device:    rec.DeviceID,
			Timestamp: rec.Time().UTC().Format(time.RFC3339),
			Synced:    rec.Synced,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"records": entries,
	})
}
