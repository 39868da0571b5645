package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"feedback_service/internal/errdefs"
	"feedback_service/internal/reminder"
	"feedback_service/pkg/logger"
)

// Scheduler is the part of reminder.Scheduler exposed over HTTP.
type Scheduler interface {
	SendOpeningSoonReminders(ctx context.Context) (reminder.Report, error)
	SendOpenReminders(ctx context.Context) (reminder.Report, error)
	SendClosingReminders(ctx context.Context) (reminder.Report, error)
	SendExtensionClosingReminders(ctx context.Context) (reminder.Report, error)
	SendClosedReminders(ctx context.Context) (reminder.Report, error)
	SendPublishedReminders(ctx context.Context) (reminder.Report, error)
	SendAll(ctx context.Context) (reminder.Report, error)
	RemindParticipants(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error)
	ResendPublished(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error)
	SendUnpublished(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error)
}

type CronHandler struct {
	scheduler Scheduler
	logger    *logger.Logger
}

func NewCronHandler(s Scheduler, log *logger.Logger) *CronHandler {
	return &CronHandler{scheduler: s, logger: log}
}

// Routes mounts the periodic triggers under /cron and the on-demand
// workers under /worker.
func (h *CronHandler) Routes(r chi.Router) {
	r.Route("/cron", func(r chi.Router) {
		r.Get("/opening-soon", h.trigger(h.scheduler.SendOpeningSoonReminders))
		r.Get("/open", h.trigger(h.scheduler.SendOpenReminders))
		r.Get("/closing", h.trigger(h.scheduler.SendClosingReminders))
		r.Get("/closing-extensions", h.trigger(h.scheduler.SendExtensionClosingReminders))
		r.Get("/closed", h.trigger(h.scheduler.SendClosedReminders))
		r.Get("/published", h.trigger(h.scheduler.SendPublishedReminders))
		r.Get("/all", h.trigger(h.scheduler.SendAll))
	})
	r.Route("/worker", func(r chi.Router) {
		r.Post("/remind", h.worker(h.scheduler.RemindParticipants))
		r.Post("/resend-published", h.worker(h.scheduler.ResendPublished))
		r.Post("/unpublished", h.worker(h.scheduler.SendUnpublished))
	})
}

func (h *CronHandler) trigger(run func(context.Context) (reminder.Report, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := run(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func (h *CronHandler) worker(run func(context.Context, reminder.RemindRequest) (reminder.Report, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reminder.RemindRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.fail(w, r, fmt.Errorf("malformed body: %v: %w", err, errdefs.ErrInvalidParameters))
			return
		}
		report, err := run(r.Context(), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, report)
	}
}

func (h *CronHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, h.logger, err)
}

// respondError hides the detail of server-side failures from the caller.
func respondError(w http.ResponseWriter, r *http.Request, fallback *logger.Logger, err error) {
	code := errdefs.HTTPStatus(err)
	log := logger.FromContext(r.Context(), fallback)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeErrorJSON(w, code, http.StatusText(code))
		return
	}
	log.Warn("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	writeErrorJSON(w, code, err.Error())
}

func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
