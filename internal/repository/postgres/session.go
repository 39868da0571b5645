package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

const sessionColumns = `
course_id, name, creator_email, instructions, time_zone,
visible_from_time, start_time, end_time, grace_period_seconds, results_mode, results_at,
published_manually, published_at,
opening_email_enabled, closing_email_enabled, published_email_enabled,
sent_opening_soon_email, sent_open_email, sent_closing_email, sent_closed_email, sent_published_email,
student_deadlines, instructor_deadlines, created_at, deleted_at`

type sessionRepository struct {
	db *sql.DB
}

func scanSession(row scanner) (*domain.FeedbackSession, error) {
	var s domain.FeedbackSession
	var (
		grace                 int64
		resultsMode           string
		resultsAt             sql.NullTime
		publishedAt           sql.NullTime
		deletedAt             sql.NullTime
		students, instructors []byte
	)
	err := row.Scan(
		&s.CourseID, &s.Name, &s.CreatorEmail, &s.Instructions, &s.TimeZone,
		&s.VisibleFromTime, &s.StartTime, &s.EndTime, &grace, &resultsMode, &resultsAt,
		&s.PublishedManually, &publishedAt,
		&s.OpeningEmailEnabled, &s.ClosingEmailEnabled, &s.PublishedEmailEnabled,
		&s.SentOpeningSoonEmail, &s.SentOpenEmail, &s.SentClosingEmail, &s.SentClosedEmail, &s.SentPublishedEmail,
		&students, &instructors, &s.CreatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	s.GracePeriod = time.Duration(grace) * time.Second
	s.ResultsVisibleFromTime = domain.ResultsVisibility{Mode: domain.ResultsMode(resultsMode)}
	if resultsAt.Valid {
		s.ResultsVisibleFromTime.At = resultsAt.Time
	}
	s.PublishedAt = timePtr(publishedAt)
	s.DeletedAt = timePtr(deletedAt)

	if err := json.Unmarshal(students, &s.StudentDeadlines); err != nil {
		return nil, fmt.Errorf("failed to decode student deadlines: %w", err)
	}
	if err := json.Unmarshal(instructors, &s.InstructorDeadlines); err != nil {
		return nil, fmt.Errorf("failed to decode instructor deadlines: %w", err)
	}
	if s.StudentDeadlines == nil {
		s.StudentDeadlines = map[string]time.Time{}
	}
	if s.InstructorDeadlines == nil {
		s.InstructorDeadlines = map[string]time.Time{}
	}
	return &s, nil
}

func encodeDeadlines(m map[string]time.Time) ([]byte, error) {
	if m == nil {
		m = map[string]time.Time{}
	}
	return json.Marshal(m)
}

func resultsAt(r domain.ResultsVisibility) sql.NullTime {
	if r.Mode != domain.ResultsAt {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: r.At, Valid: true}
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.FeedbackSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	students, err := encodeDeadlines(s.StudentDeadlines)
	if err != nil {
		return err
	}
	instructors, err := encodeDeadlines(s.InstructorDeadlines)
	if err != nil {
		return err
	}

	query := `INSERT INTO feedback_sessions (` + sessionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err = r.db.ExecContext(ctx, query,
		s.CourseID, s.Name, s.CreatorEmail, s.Instructions, s.TimeZone,
		s.VisibleFromTime, s.StartTime, s.EndTime, int64(s.GracePeriod/time.Second),
		string(s.ResultsVisibleFromTime.Mode), resultsAt(s.ResultsVisibleFromTime),
		s.PublishedManually, nullTime(s.PublishedAt),
		s.OpeningEmailEnabled, s.ClosingEmailEnabled, s.PublishedEmailEnabled,
		s.SentOpeningSoonEmail, s.SentOpenEmail, s.SentClosingEmail, s.SentClosedEmail, s.SentPublishedEmail,
		students, instructors, s.CreatedAt, nullTime(s.DeletedAt),
	)
	return mapError(err, fmt.Sprintf("session %s", s.Key()))
}

func (r *sessionRepository) Get(ctx context.Context, courseID, name string) (*domain.FeedbackSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM feedback_sessions WHERE course_id = $1 AND name = $2`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, courseID, name))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("session %s/%s", courseID, name))
	}
	return s, nil
}

func (r *sessionRepository) list(ctx context.Context, what, query string, args ...any) ([]*domain.FeedbackSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	defer rows.Close()

	var sessions []*domain.FeedbackSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		sessions = append(sessions, s)
	}
	return sessions, mapError(rows.Err(), what)
}

func (r *sessionRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.FeedbackSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM feedback_sessions WHERE course_id = $1 ORDER BY name`
	return r.list(ctx, fmt.Sprintf("sessions of %s", courseID), query, courseID)
}

func (r *sessionRepository) ListEmailPending(ctx context.Context, flag domain.EmailFlag) ([]*domain.FeedbackSession, error) {
	if !flag.IsValid() {
		return nil, fmt.Errorf("unknown email flag %q: %w", flag, errdefs.ErrInvalidParameters)
	}
	// flag values are the column names
	query := fmt.Sprintf(`SELECT %s FROM feedback_sessions
WHERE deleted_at IS NULL AND %s = FALSE
ORDER BY course_id, name`, sessionColumns, flag)
	return r.list(ctx, fmt.Sprintf("sessions pending %s", flag), query)
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.FeedbackSession) error {
	query := `
UPDATE feedback_sessions SET
    creator_email = $3, instructions = $4, time_zone = $5,
    visible_from_time = $6, start_time = $7, end_time = $8, grace_period_seconds = $9,
    results_mode = $10, results_at = $11, published_manually = $12, published_at = $13,
    opening_email_enabled = $14, closing_email_enabled = $15, published_email_enabled = $16,
    deleted_at = $17
WHERE course_id = $1 AND name = $2`
	return execOne(ctx, r.db, fmt.Sprintf("session %s", s.Key()), query,
		s.CourseID, s.Name, s.CreatorEmail, s.Instructions, s.TimeZone,
		s.VisibleFromTime, s.StartTime, s.EndTime, int64(s.GracePeriod/time.Second),
		string(s.ResultsVisibleFromTime.Mode), resultsAt(s.ResultsVisibleFromTime),
		s.PublishedManually, nullTime(s.PublishedAt),
		s.OpeningEmailEnabled, s.ClosingEmailEnabled, s.PublishedEmailEnabled,
		nullTime(s.DeletedAt),
	)
}

func (r *sessionRepository) MarkEmailSent(ctx context.Context, key domain.SessionKey, flag domain.EmailFlag) error {
	if !flag.IsValid() {
		return fmt.Errorf("unknown email flag %q: %w", flag, errdefs.ErrInvalidParameters)
	}
	query := fmt.Sprintf(`UPDATE feedback_sessions SET %s = TRUE WHERE course_id = $1 AND name = $2`, flag)
	return execOne(ctx, r.db, fmt.Sprintf("session %s", key), query, key.CourseID, key.Name)
}

func (r *sessionRepository) ClearEmailSent(ctx context.Context, key domain.SessionKey, flags ...domain.EmailFlag) error {
	if len(flags) == 0 {
		return nil
	}
	sets := make([]string, 0, len(flags))
	for _, flag := range flags {
		if !flag.IsValid() {
			return fmt.Errorf("unknown email flag %q: %w", flag, errdefs.ErrInvalidParameters)
		}
		sets = append(sets, string(flag)+" = FALSE")
	}
	query := fmt.Sprintf(`UPDATE feedback_sessions SET %s WHERE course_id = $1 AND name = $2`, strings.Join(sets, ", "))
	return execOne(ctx, r.db, fmt.Sprintf("session %s", key), query, key.CourseID, key.Name)
}

func (r *sessionRepository) SetDeadlines(ctx context.Context, key domain.SessionKey, students, instructors map[string]time.Time) error {
	s, err := encodeDeadlines(students)
	if err != nil {
		return err
	}
	i, err := encodeDeadlines(instructors)
	if err != nil {
		return err
	}
	query := `UPDATE feedback_sessions SET student_deadlines = $3, instructor_deadlines = $4 WHERE course_id = $1 AND name = $2`
	return execOne(ctx, r.db, fmt.Sprintf("session %s", key), query, key.CourseID, key.Name, s, i)
}

func (r *sessionRepository) Delete(ctx context.Context, courseID, name string) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("session %s/%s", courseID, name),
		`DELETE FROM feedback_sessions WHERE course_id = $1 AND name = $2`, courseID, name)
	return n > 0, err
}

func (r *sessionRepository) DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error) {
	query := `
DELETE FROM feedback_sessions WHERE ctid IN (
    SELECT ctid FROM feedback_sessions WHERE course_id = $1 LIMIT $2
)`
	return exec(ctx, r.db, fmt.Sprintf("sessions of %s", courseID), query, courseID, limit)
}
