package api

import (
	"context"
	"encoding/json"
	"net/http"

	"chapter-render-service/internal/models"
	"chapter-render-service/internal/tracker"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ChapterRenderer runs a chapter render to completion, reporting progress
// through the job tracker rather than a return value.
type ChapterRenderer interface {
	Render(ctx context.Context, chapterID uuid.UUID, jobID string)
}

type Handler struct {
	tracker  *tracker.Tracker
	renderer ChapterRenderer
}

func NewHandler(jobs *tracker.Tracker, renderer ChapterRenderer) *Handler {
	return &Handler{
		tracker:  jobs,
		renderer: renderer,
	}
}

// RenderChapter handles POST /render-chapter
//
// Accepts the request immediately and renders on a background goroutine;
// callers poll GET /job-status/{jobID} for the outcome.
func (h *Handler) RenderChapter(w http.ResponseWriter, r *http.Request) {
	var req models.RenderChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ChapterID == "" {
		respondError(w, http.StatusBadRequest, "chapter_id is required")
		return
	}

	chapterID, err := uuid.Parse(req.ChapterID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "chapter_id must be a valid UUID")
		return
	}

	jobID := h.tracker.Create(chapterID)

	// Detached from the request context on purpose: the render must survive
	// the caller disconnecting.
	go h.renderer.Render(context.Background(), chapterID, jobID)

	respondJSON(w, http.StatusAccepted, models.RenderChapterResponse{
		Status:    "accepted",
		ChapterID: chapterID,
		JobID:     jobID,
	})
}

// JobStatus handles GET /job-status/{jobID}
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, ok := h.tracker.Get(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
