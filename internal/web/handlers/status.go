package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/gallery"
	"github.com/kozaktomas/face-attend/internal/ledger"
)

const enginePingTimeout = 2 * time.Second

// Pinger reports whether the face engine is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusHandler reports the operational state of the device.
type StatusHandler struct {
	config *config.Config
	store  *gallery.Store
	ledger *ledger.Ledger
	engine Pinger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(cfg *config.Config, store *gallery.Store, led *ledger.Ledger, engine Pinger) *StatusHandler {
	return &StatusHandler{
		config: cfg,
		store:  store,
		ledger: led,
		engine: engine,
	}
}

// StatusResponse represents the device status response.
type StatusResponse struct {
	Device              string `json:"device"`
	GallerySubjects     int    `json:"gallery_subjects"`
	EmbeddingDim        int    `json:"embedding_dim"`
	AttendanceTotal     int64  `json:"attendance_total"`
	AttendanceUnsynced  int64  `json:"attendance_unsynced"`
	SyncIntervalSeconds int    `json:"sync_interval_seconds"`
	EngineOnline        bool   `json:"engine_online"`
}

// Get returns gallery, ledger and engine state in one response.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()

	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		log.Printf("Failed to read ledger stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance ledger")
		return
	}

	engineOnline := false
	if h.engine != nil {
		ctx, cancel := context.WithTimeout(r.Context(), enginePingTimeout)
		engineOnline = h.engine.Ping(ctx) == nil
		cancel()
	}

	respondJSON(w, http.StatusOK, &StatusResponse{
		Device:              h.config.Device.ID,
		GallerySubjects:     snap.Count(),
		EmbeddingDim:        snap.Dim(),
		AttendanceTotal:     stats.Total,
		AttendanceUnsynced:  stats.Unsynced,
		SyncIntervalSeconds: h.config.Central.SyncIntervalSeconds,
		EngineOnline:        engineOnline,
	})
}
