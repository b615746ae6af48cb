package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"kollektor/internal/models"
	"kollektor/internal/store"
)

// CheckpointsHandler exposes the per-unit progress the collector
// processes maintain: stats, the pending set, seeding and the reset
// used by the force-reprocess flow.
type CheckpointsHandler struct {
	checkpoints *store.Checkpoints
}

func NewCheckpointsHandler(checkpoints *store.Checkpoints) *CheckpointsHandler {
	return &CheckpointsHandler{checkpoints: checkpoints}
}

func (h *CheckpointsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}

	stats, err := h.checkpoints.Stats(r.Context(), kind)
	if err != nil {
		log.Printf("Failed to compute checkpoint stats: %v", err)
		http.Error(w, "Failed to compute checkpoint stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *CheckpointsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}
	prefix := r.URL.Query().Get("prefix")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	pending, err := h.checkpoints.Pending(r.Context(), kind, prefix, limit)
	if err != nil {
		log.Printf("Failed to list pending checkpoints: %v", err)
		http.Error(w, "Failed to list pending checkpoints", http.StatusInternalServerError)
		return
	}
	if pending == nil {
		pending = []models.Checkpoint{}
	}
	writeJSON(w, http.StatusOK, pending)
}

type SeedRequest struct {
	Kind  string   `json:"kind"`
	Units []string `json:"units"`
}

func (h *CheckpointsHandler) Seed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}

	created, err := h.checkpoints.Seed(r.Context(), req.Kind, req.Units)
	if err != nil {
		log.Printf("Failed to seed checkpoints: %v", err)
		http.Error(w, "Failed to seed checkpoints", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"created": created})
}

type ResetRequest struct {
	Kind       string `json:"kind"`
	Prefix     string `json:"prefix"`
	ErrorsOnly bool   `json:"errors_only"`
}

// Reset clears done markers so the next run reprocesses the units.
// Paired with the kind's force flag by operators who want a rescrape.
func (h *CheckpointsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}

	reset, err := h.checkpoints.Reset(r.Context(), req.Kind, req.Prefix, req.ErrorsOnly)
	if err != nil {
		log.Printf("Failed to reset checkpoints: %v", err)
		http.Error(w, "Failed to reset checkpoints", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reset": reset})
}
