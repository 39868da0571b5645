package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedback_service/internal/domain"
)

type courseRepository struct {
	db *sql.DB
}

func (r *courseRepository) Create(ctx context.Context, course *domain.Course) error {
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now()
	}
	query := `
INSERT INTO courses (id, name, time_zone, institute, created_at, deleted_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		course.ID, course.Name, course.TimeZone, course.Institute, course.CreatedAt, nullTime(course.DeletedAt))
	return mapError(err, fmt.Sprintf("course %s", course.ID))
}

func (r *courseRepository) Get(ctx context.Context, id string) (*domain.Course, error) {
	query := `SELECT id, name, time_zone, institute, created_at, deleted_at FROM courses WHERE id = $1`

	var c domain.Course
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.TimeZone, &c.Institute, &c.CreatedAt, &deletedAt)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("course %s", id))
	}
	c.DeletedAt = timePtr(deletedAt)
	return &c, nil
}

func (r *courseRepository) Update(ctx context.Context, course *domain.Course) error {
	query := `UPDATE courses SET name = $2, time_zone = $3, institute = $4, deleted_at = $5 WHERE id = $1`
	return execOne(ctx, r.db, fmt.Sprintf("course %s", course.ID), query,
		course.ID, course.Name, course.TimeZone, course.Institute, nullTime(course.DeletedAt))
}

func (r *courseRepository) Delete(ctx context.Context, id string) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("course %s", id), `DELETE FROM courses WHERE id = $1`, id)
	return n > 0, err
}
