package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"kollektor/internal/config"
	"kollektor/internal/jobs"
	"kollektor/internal/models"

	"github.com/gorilla/mux"
)

type JobsHandler struct {
	controller *jobs.Controller
	jobStore   jobs.JobStore
	logStore   jobs.LogStore
	kinds      *config.Kinds
}

func NewJobsHandler(controller *jobs.Controller, jobStore jobs.JobStore, logStore jobs.LogStore, kinds *config.Kinds) *JobsHandler {
	return &JobsHandler{
		controller: controller,
		jobStore:   jobStore,
		logStore:   logStore,
		kinds:      kinds,
	}
}

type CreateJobRequest struct {
	Kind       string         `json:"kind"`
	Parameters map[string]any `json:"parameters"`
}

// CreateJob starts a new collection run. 409 with the blocking job when
// one is already active.
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}

	job, err := h.controller.Start(r.Context(), req.Kind, req.Parameters)
	if err != nil {
		var conflict *jobs.ConflictError
		var validation *jobs.ValidationError
		switch {
		case errors.As(err, &conflict):
			conflict.Running.FillDuration()
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":       "a job is already running",
				"running_job": conflict.Running,
			})
		case errors.As(err, &validation):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": validation.Error(),
				"field": validation.Field,
			})
		default:
			log.Printf("Failed to start job: %v", err)
			http.Error(w, "Failed to start job", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// ListJobs returns the most recent jobs, newest first.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.jobStore.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to list jobs: %v", err)
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Job{}
	}
	for i := range list {
		list[i].FillDuration()
	}
	writeJSON(w, http.StatusOK, list)
}

// RunningJob returns the single running job, 204 when idle.
func (h *JobsHandler) RunningJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.controller.CurrentRunning(r.Context())
	if err != nil {
		log.Printf("Failed to query running job: %v", err)
		http.Error(w, "Failed to query running job", http.StatusInternalServerError)
		return
	}
	if job == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	job.FillDuration()
	writeJSON(w, http.StatusOK, job)
}

// GetJob returns a single job record including duration.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	job.FillDuration()
	writeJSON(w, http.StatusOK, job)
}

// CancelJob terminates the running job. 404 when the id is unknown or
// the job is not running.
func (h *JobsHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return
	}

	if err := h.controller.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no running job with this id"})
			return
		}
		log.Printf("Failed to cancel job %d: %v", id, err)
		http.Error(w, "Failed to cancel job", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "job cancellation requested"})
}

// GetJobLogs returns the job plus its captured lines, optionally only
// those after a sequence cursor.
func (h *JobsHandler) GetJobLogs(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}

	after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	lines, err := h.logStore.LinesSince(r.Context(), job.ID, after)
	if err != nil {
		log.Printf("Failed to read logs for job %d: %v", job.ID, err)
		http.Error(w, "Failed to read logs", http.StatusInternalServerError)
		return
	}
	if lines == nil {
		lines = []models.LogLine{}
	}

	job.FillDuration()
	writeJSON(w, http.StatusOK, map[string]any{
		"job":   job,
		"lines": lines,
	})
}

// ListKinds exposes the configured job kind schemas, so the console UI
// can render parameter forms without hardcoding them.
func (h *JobsHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.kinds.All())
}

func (h *JobsHandler) lookupJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return nil, false
	}
	job, err := h.jobStore.Get(r.Context(), id)
	if err != nil {
		log.Printf("Failed to get job %d: %v", id, err)
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return nil, false
	}
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return nil, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
