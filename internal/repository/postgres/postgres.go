package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/repository"
)

const (
	uniqueViolation     pq.ErrorCode = "23505"
	foreignKeyViolation pq.ErrorCode = "23503"
	adminShutdown       pq.ErrorCode = "57P01"
	connectionClass     pq.ErrorClass = "08"
)

// NewStore builds every repository over one connection pool.
func NewStore(db *sql.DB) *repository.Store {
	return &repository.Store{
		Courses:     &courseRepository{db: db},
		Sessions:    &sessionRepository{db: db},
		Questions:   &questionRepository{db: db},
		Responses:   &responseRepository{db: db},
		Comments:    &commentRepository{db: db},
		Extensions:  &extensionRepository{db: db},
		Students:    &studentRepository{db: db},
		Instructors: &instructorRepository{db: db},
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// mapError translates driver errors into the errdefs taxonomy.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, errdefs.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == uniqueViolation:
			return fmt.Errorf("%s: %w", what, errdefs.ErrAlreadyExists)
		case pqErr.Code == foreignKeyViolation:
			return fmt.Errorf("%s: %s: %w", what, pqErr.Message, errdefs.ErrInvalidParameters)
		case pqErr.Code == adminShutdown, pqErr.Code.Class() == connectionClass:
			return fmt.Errorf("%s: %s: %w", what, pqErr.Message, errdefs.ErrUnavailable)
		}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %v: %w", what, err, errdefs.ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func affected(res sql.Result, what string) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(err, what)
	}
	return int(n), nil
}

func exec(ctx context.Context, db *sql.DB, what, query string, args ...any) (int, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapError(err, what)
	}
	return affected(res, what)
}

// execOne runs an update that must touch exactly one row.
func execOne(ctx context.Context, db *sql.DB, what, query string, args ...any) error {
	n, err := exec(ctx, db, what, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, errdefs.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func participantTypes(p []domain.ParticipantType) pq.StringArray {
	out := make(pq.StringArray, len(p))
	for i, v := range p {
		out[i] = string(v)
	}
	return out
}

func toParticipantTypes(a pq.StringArray) []domain.ParticipantType {
	out := make([]domain.ParticipantType, len(a))
	for i, v := range a {
		out[i] = domain.ParticipantType(v)
	}
	return out
}

func now() time.Time {
	return time.Now().UTC()
}
