package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"feedback_service/internal/cascade"
	"feedback_service/pkg/logger"
)

type CoursePurger interface {
	Purge(ctx context.Context, id string, until time.Time) (cascade.BatchProgress, error)
}

// PurgeHandler hard-deletes a course within a time budget. A partial run
// answers 202 and the caller re-invokes it until 200.
type PurgeHandler struct {
	courses CoursePurger
	budget  time.Duration
	now     func() time.Time
	logger  *logger.Logger
}

func NewPurgeHandler(courses CoursePurger, budget time.Duration, log *logger.Logger) *PurgeHandler {
	return &PurgeHandler{courses: courses, budget: budget, now: time.Now, logger: log}
}

func (h *PurgeHandler) Routes(r chi.Router) {
	r.Post("/worker/purge-course/{courseID}", h.purge)
}

func (h *PurgeHandler) purge(w http.ResponseWriter, r *http.Request) {
	var until time.Time
	if h.budget > 0 {
		until = h.now().Add(h.budget)
	}

	progress, err := h.courses.Purge(r.Context(), chi.URLParam(r, "courseID"), until)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if !progress.Complete {
		writeJSON(w, http.StatusAccepted, progress)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
