package roster

import (
	"context"

	"feedback_service/internal/domain"
	"feedback_service/internal/repository"
)

//go:generate mockgen -source=provider.go -destination=mocks/provider.go -package=mocks

// Provider is the source of roster data for a course.
type Provider interface {
	StudentsForCourse(ctx context.Context, courseID string) ([]*domain.Student, error)
	InstructorsForCourse(ctx context.Context, courseID string) ([]*domain.Instructor, error)
	StudentsForTeam(ctx context.Context, team, courseID string) ([]*domain.Student, error)
}

// RepositoryProvider reads the roster straight from storage.
type RepositoryProvider struct {
	students    repository.StudentRepository
	instructors repository.InstructorRepository
}

func NewRepositoryProvider(students repository.StudentRepository, instructors repository.InstructorRepository) *RepositoryProvider {
	return &RepositoryProvider{students: students, instructors: instructors}
}

func (p *RepositoryProvider) StudentsForCourse(ctx context.Context, courseID string) ([]*domain.Student, error) {
	return p.students.ListByCourse(ctx, courseID)
}

func (p *RepositoryProvider) InstructorsForCourse(ctx context.Context, courseID string) ([]*domain.Instructor, error) {
	return p.instructors.ListByCourse(ctx, courseID)
}

func (p *RepositoryProvider) StudentsForTeam(ctx context.Context, team, courseID string) ([]*domain.Student, error) {
	return p.students.ListByTeam(ctx, courseID, team)
}
