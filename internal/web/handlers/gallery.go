package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/gallery"
)

// GalleryHandler manages the on-device face gallery.
type GalleryHandler struct {
	store *gallery.Store
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(store *gallery.Store) *GalleryHandler {
	return &GalleryHandler{store: store}
}

// Reload re-reads the gallery artifacts from disk.
// On failure the previously loaded snapshot keeps serving.
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(); err != nil {
		log.Printf("Failed to reload gallery: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to reload gallery")
		return
	}

	snap := h.store.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"subjects": snap.Count(),
	})
}
