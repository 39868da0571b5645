package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"feedback_service/internal/domain"
)

const (
	studentColumns    = `course_id, email, name, team, section, google_id, created_at, edited_at`
	instructorColumns = `course_id, email, name, google_id, role, is_displayed_to_students, created_at, edited_at`
)

type studentRepository struct {
	db *sql.DB
}

func scanStudent(row scanner) (*domain.Student, error) {
	var s domain.Student
	if err := row.Scan(&s.CourseID, &s.Email, &s.Name, &s.Team, &s.Section, &s.GoogleID, &s.CreatedAt, &s.EditedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepository) Create(ctx context.Context, s *domain.Student) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
		s.EditedAt = s.CreatedAt
	}
	query := `INSERT INTO students (` + studentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, s.CourseID, s.Email, s.Name, s.Team, s.Section, s.GoogleID, s.CreatedAt, s.EditedAt)
	return mapError(err, fmt.Sprintf("student %s", s.Email))
}

func (r *studentRepository) Get(ctx context.Context, courseID, email string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE course_id = $1 AND email = $2`
	s, err := scanStudent(r.db.QueryRowContext(ctx, query, courseID, email))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("student %s", email))
	}
	return s, nil
}

func (r *studentRepository) list(ctx context.Context, what, query string, args ...any) ([]*domain.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, what)
	}
	defer rows.Close()

	var students []*domain.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		students = append(students, s)
	}
	return students, mapError(rows.Err(), what)
}

func (r *studentRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE course_id = $1 ORDER BY email`
	return r.list(ctx, fmt.Sprintf("students of %s", courseID), query, courseID)
}

func (r *studentRepository) ListByTeam(ctx context.Context, courseID, team string) ([]*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE course_id = $1 AND team = $2 ORDER BY email`
	return r.list(ctx, fmt.Sprintf("students of team %s", team), query, courseID, team)
}

func (r *studentRepository) Update(ctx context.Context, email string, s *domain.Student) error {
	query := `
UPDATE students SET email = $3, name = $4, team = $5, section = $6, google_id = $7, edited_at = $8
WHERE course_id = $1 AND email = $2`
	return execOne(ctx, r.db, fmt.Sprintf("student %s", email), query,
		s.CourseID, email, s.Email, s.Name, s.Team, s.Section, s.GoogleID, s.EditedAt)
}

func (r *studentRepository) Delete(ctx context.Context, courseID, email string) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("student %s", email),
		`DELETE FROM students WHERE course_id = $1 AND email = $2`, courseID, email)
	return n > 0, err
}

func (r *studentRepository) DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error) {
	query := `
DELETE FROM students WHERE ctid IN (
    SELECT ctid FROM students WHERE course_id = $1 LIMIT $2
)`
	return exec(ctx, r.db, fmt.Sprintf("students of %s", courseID), query, courseID, limit)
}

type instructorRepository struct {
	db *sql.DB
}

func scanInstructor(row scanner) (*domain.Instructor, error) {
	var i domain.Instructor
	err := row.Scan(&i.CourseID, &i.Email, &i.Name, &i.GoogleID, &i.Role, &i.IsDisplayedToStudents, &i.CreatedAt, &i.EditedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *instructorRepository) Create(ctx context.Context, i *domain.Instructor) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now()
		i.EditedAt = i.CreatedAt
	}
	query := `INSERT INTO instructors (` + instructorColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		i.CourseID, i.Email, i.Name, i.GoogleID, i.Role, i.IsDisplayedToStudents, i.CreatedAt, i.EditedAt)
	return mapError(err, fmt.Sprintf("instructor %s", i.Email))
}

func (r *instructorRepository) Get(ctx context.Context, courseID, email string) (*domain.Instructor, error) {
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE course_id = $1 AND email = $2`
	i, err := scanInstructor(r.db.QueryRowContext(ctx, query, courseID, email))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("instructor %s", email))
	}
	return i, nil
}

func (r *instructorRepository) ListByCourse(ctx context.Context, courseID string) ([]*domain.Instructor, error) {
	what := fmt.Sprintf("instructors of %s", courseID)
	query := `SELECT ` + instructorColumns + ` FROM instructors WHERE course_id = $1 ORDER BY email`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, mapError(err, what)
	}
	defer rows.Close()

	var instructors []*domain.Instructor
	for rows.Next() {
		i, err := scanInstructor(rows)
		if err != nil {
			return nil, mapError(err, what)
		}
		instructors = append(instructors, i)
	}
	return instructors, mapError(rows.Err(), what)
}

func (r *instructorRepository) Update(ctx context.Context, email string, i *domain.Instructor) error {
	query := `
UPDATE instructors SET email = $3, name = $4, google_id = $5, role = $6, is_displayed_to_students = $7, edited_at = $8
WHERE course_id = $1 AND email = $2`
	return execOne(ctx, r.db, fmt.Sprintf("instructor %s", email), query,
		i.CourseID, email, i.Email, i.Name, i.GoogleID, i.Role, i.IsDisplayedToStudents, i.EditedAt)
}

func (r *instructorRepository) Delete(ctx context.Context, courseID, email string) (bool, error) {
	n, err := exec(ctx, r.db, fmt.Sprintf("instructor %s", email),
		`DELETE FROM instructors WHERE course_id = $1 AND email = $2`, courseID, email)
	return n > 0, err
}

func (r *instructorRepository) DeleteByCourse(ctx context.Context, courseID string, limit int) (int, error) {
	query := `
DELETE FROM instructors WHERE ctid IN (
    SELECT ctid FROM instructors WHERE course_id = $1 LIMIT $2
)`
	return exec(ctx, r.db, fmt.Sprintf("instructors of %s", courseID), query, courseID, limit)
}
