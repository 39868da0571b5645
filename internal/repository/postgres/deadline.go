package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedback_service/internal/domain"
)

const extensionColumns = `course_id, session_name, user_email, is_instructor, end_time, created_at, edited_at`

type extensionRepository struct {
	db *sql.DB
}

func scanExtension(row scanner) (*domain.DeadlineExtension, error) {
	var e domain.DeadlineExtension
	err := row.Scan(&e.CourseID, &e.SessionName, &e.UserEmail, &e.IsInstructor, &e.EndTime, &e.CreatedAt, &e.EditedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *extensionRepository) Create(ctx context.Context, ext *domain.DeadlineExtension) error {
	if ext.CreatedAt.IsZero() {
		ext.CreatedAt = now()
	}
	if ext.EditedAt.IsZero() {
		ext.EditedAt = ext.CreatedAt
	}
	query := `INSERT INTO deadline_extensions (` + extensionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		ext.CourseID, ext.SessionName, ext.UserEmail, ext.IsInstructor, ext.EndTime, ext.CreatedAt, ext.EditedAt)
	return mapError(err, fmt.Sprintf("deadline extension for %s", ext.UserEmail))
}

func (r *extensionRepository) Get(ctx context.Context, key domain.DeadlineExtensionKey) (*domain.DeadlineExtension, error) {
	query := `SELECT ` + extensionColumns + ` FROM deadline_extensions
WHERE course_id = $1 AND session_name = $2 AND user_email = $3 AND is_instructor = $4`
	e, err := scanExtension(r.db.QueryRowContext(ctx, query, key.CourseID, key.SessionName, key.UserEmail, key.IsInstructor))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("deadline extension for %s", key.UserEmail))
	}
	return e, nil
}

func (r *extensionRepository) Update(ctx context.Context, ext *domain.DeadlineExtension) error {
	query := `
UPDATE deadline_extensions SET end_time = $5, edited_at = $6
WHERE course_id = $1 AND session_name = $2 AND user_email = $3 AND is_instructor = $4`
	return execOne(ctx, r.db, fmt.Sprintf("deadline extension for %s", ext.UserEmail), query,
		ext.CourseID, ext.SessionName, ext.UserEmail, ext.IsInstructor, ext.EndTime, ext.EditedAt)
}

func (r *extensionRepository) list(ctx context.Context, what, query string, args ...any) ([]*domain.DeadlineExtension, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	defer rows.Close()

	var exts []*domain.DeadlineExtension
	for rows.Next() {
		e, err := scanExtension(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		exts = append(exts, e)
	}
	return exts, mapError(rows.Err(), what)
}

const extensionOrder = ` ORDER BY course_id, session_name, is_instructor, user_email`

func (r *extensionRepository) ListBySession(ctx context.Context, courseID, sessionName string) ([]*domain.DeadlineExtension, error) {
	query := `SELECT ` + extensionColumns + ` FROM deadline_extensions
WHERE course_id = $1 AND session_name = $2` + extensionOrder
	return r.list(ctx, fmt.Sprintf("deadline extensions of %s/%s", courseID, sessionName), query, courseID, sessionName)
}

func (r *extensionRepository) ListByUser(ctx context.Context, courseID, email string, isInstructor bool) ([]*domain.DeadlineExtension, error) {
	query := `SELECT ` + extensionColumns + ` FROM deadline_extensions
WHERE course_id = $1 AND user_email = $2 AND is_instructor = $3` + extensionOrder
	return r.list(ctx, fmt.Sprintf("deadline extensions of %s", email), query, courseID, email, isInstructor)
}

func (r *extensionRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]*domain.DeadlineExtension, error) {
	query := `SELECT ` + extensionColumns + ` FROM deadline_extensions
WHERE end_time >= $1 AND end_time <= $2` + extensionOrder
	return r.list(ctx, "deadline extensions ending soon", query, from, to)
}

func (r *extensionRepository) Delete(ctx context.Context, key domain.DeadlineExtensionKey) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("deadline extension for %s", key.UserEmail), `
DELETE FROM deadline_extensions
WHERE course_id = $1 AND session_name = $2 AND user_email = $3 AND is_instructor = $4`,
		key.CourseID, key.SessionName, key.UserEmail, key.IsInstructor)
	return n > 0, err
}

func (r *extensionRepository) DeleteBySession(ctx context.Context, courseID, sessionName string) (int, error) {
	return exec(ctx, r.db, fmt.Sprintf("deadline extensions of %s/%s", courseID, sessionName),
		`DELETE FROM deadline_extensions WHERE course_id = $1 AND session_name = $2`, courseID, sessionName)
}

func (r *extensionRepository) DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error) {
	query := `
DELETE FROM deadline_extensions WHERE ctid IN (
    SELECT ctid FROM deadline_extensions WHERE course_id = $1 LIMIT $2
)`
	return exec(ctx, r.db, fmt.Sprintf("deadline extensions of %s", courseID), query, courseID, limit)
}
