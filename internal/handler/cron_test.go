package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"feedback_service/internal/errdefs"
	"feedback_service/internal/reminder"
	"feedback_service/pkg/logger"
)

// ── helpers ─────────────────────────────────────────────────────────

type schedulerMock struct {
	mock.Mock
}

func (m *schedulerMock) report(name string, args ...any) (reminder.Report, error) {
	ret := m.MethodCalled(name, args...)
	return ret.Get(0).(reminder.Report), ret.Error(1)
}

func (m *schedulerMock) SendOpeningSoonReminders(ctx context.Context) (reminder.Report, error) {
	return m.report("SendOpeningSoonReminders", ctx)
}

func (m *schedulerMock) SendOpenReminders(ctx context.Context) (reminder.Report, error) {
	return m.report("SendOpenReminders", ctx)
}

func (m *schedulerMock) SendClosingReminders(ctx context.Context) (reminder.Report, error) {
	return m.report("SendClosingReminders", ctx)
}

func (m *schedulerMock) SendExtensionClosingReminders(ctx context.Context) (reminder.Report, error) {
	return m.report("SendExtensionClosingReminders", ctx)
}

func (m *schedulerMock) SendClosedReminders(ctx context.Context) (reminder.Report, error) {
	return m.report("SendClosedReminders", ctx)
}

func (m *schedulerMock) SendPublishedReminders(ctx context.Context) (reminder.Report, error) {
	return m.report("SendPublishedReminders", ctx)
}

func (m *schedulerMock) SendAll(ctx context.Context) (reminder.Report, error) {
	return m.report("SendAll", ctx)
}

func (m *schedulerMock) RemindParticipants(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error) {
	return m.report("RemindParticipants", ctx, req)
}

func (m *schedulerMock) ResendPublished(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error) {
	return m.report("ResendPublished", ctx, req)
}

func (m *schedulerMock) SendUnpublished(ctx context.Context, req reminder.RemindRequest) (reminder.Report, error) {
	return m.report("SendUnpublished", ctx, req)
}

func setup(t *testing.T) (*schedulerMock, http.Handler) {
	t.Helper()
	s := &schedulerMock{}
	t.Cleanup(func() { s.AssertExpectations(t) })

	r := chi.NewRouter()
	r.Get("/health", Health)
	NewCronHandler(s, logger.NewNop()).Routes(r)
	return s, r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// ── cron ────────────────────────────────────────────────────────────

func TestCronTriggers(t *testing.T) {
	routes := map[string]string{
		"/cron/opening-soon":       "SendOpeningSoonReminders",
		"/cron/open":               "SendOpenReminders",
		"/cron/closing":            "SendClosingReminders",
		"/cron/closing-extensions": "SendExtensionClosingReminders",
		"/cron/closed":             "SendClosedReminders",
		"/cron/published":          "SendPublishedReminders",
		"/cron/all":                "SendAll",
	}

	for path, method := range routes {
		t.Run(method, func(t *testing.T) {
			s, h := setup(t)
			s.On(method, mock.Anything).Return(reminder.Report{Sessions: 2, Dispatched: 5}, nil).Once()

			w := do(h, http.MethodGet, path, "")

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var got reminder.Report
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, reminder.Report{Sessions: 2, Dispatched: 5}, got)
		})
	}

	t.Run("StorageFailureHidesDetail", func(t *testing.T) {
		s, h := setup(t)
		s.On("SendClosedReminders", mock.Anything).
			Return(reminder.Report{}, errors.New("pq: connection refused")).Once()

		w := do(h, http.MethodGet, "/cron/closed", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "pq:")
	})

	t.Run("Unavailable", func(t *testing.T) {
		s, h := setup(t)
		s.On("SendOpenReminders", mock.Anything).
			Return(reminder.Report{}, fmt.Errorf("db: %w", errdefs.ErrUnavailable)).Once()

		w := do(h, http.MethodGet, "/cron/open", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("WrongMethod", func(t *testing.T) {
		_, h := setup(t)
		w := do(h, http.MethodPost, "/cron/open", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

// ── worker ──────────────────────────────────────────────────────────

func TestWorkers(t *testing.T) {
	t.Run("Remind", func(t *testing.T) {
		s, h := setup(t)
		want := reminder.RemindRequest{
			CourseID:      "c1",
			SessionName:   "s1",
			InstructorID:  "i@x.com",
			UsersToRemind: []string{"a@x.com"},
		}
		s.On("RemindParticipants", mock.Anything, want).Return(reminder.Report{Sessions: 1, Dispatched: 2}, nil).Once()

		w := do(h, http.MethodPost, "/worker/remind",
			`{"course_id":"c1","session_name":"s1","instructor_id":"i@x.com","users_to_remind":["a@x.com"]}`)

		require.Equal(t, http.StatusAccepted, w.Code)
		var got reminder.Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 2, got.Dispatched)
	})

	t.Run("ResendNotPublished", func(t *testing.T) {
		s, h := setup(t)
		s.On("ResendPublished", mock.Anything, mock.Anything).
			Return(reminder.Report{}, fmt.Errorf("session c1/s1 is not published: %w", errdefs.ErrInvalidState)).Once()

		w := do(h, http.MethodPost, "/worker/resend-published", `{"course_id":"c1","session_name":"s1"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "not published")
	})

	t.Run("Unpublished", func(t *testing.T) {
		s, h := setup(t)
		want := reminder.RemindRequest{CourseID: "c1", SessionName: "s1"}
		s.On("SendUnpublished", mock.Anything, want).Return(reminder.Report{Sessions: 1, Dispatched: 4}, nil).Once()

		w := do(h, http.MethodPost, "/worker/unpublished", `{"course_id":"c1","session_name":"s1"}`)

		require.Equal(t, http.StatusAccepted, w.Code)
		var got reminder.Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, 4, got.Dispatched)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		_, h := setup(t)
		w := do(h, http.MethodPost, "/worker/remind", `{"course_id":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// ── health ──────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	_, h := setup(t)
	w := do(h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

// ── writeErrorJSON ──────────────────────────────────────────────────

func TestWriteErrorJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeErrorJSON(w, http.StatusBadRequest, "test error")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "test error", body["error"])
}
