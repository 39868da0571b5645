package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/cascade"
	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
	"feedback_service/internal/repository"
	"feedback_service/pkg/logger"
)

type EnrollStudentInput struct {
	CourseID string `json:"course_id" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Section  string `json:"section"`
	GoogleID string `json:"google_id"`
}

type UpdateStudentInput struct {
	CourseID string  `json:"course_id" validate:"notblank"`
	Email    string  `json:"email" validate:"required,email"`
	NewEmail *string `json:"new_email" validate:"omitempty,email"`
	Name     *string `json:"name"`
	Team     *string `json:"team"`
	Section  *string `json:"section" validate:"omitempty,notblank"`
}

type AddInstructorInput struct {
	CourseID              string `json:"course_id" validate:"notblank"`
	Email                 string `json:"email" validate:"required,email"`
	Name                  string `json:"name"`
	Role                  string `json:"role"`
	IsDisplayedToStudents bool   `json:"is_displayed_to_students"`
	GoogleID              string `json:"google_id"`
}

type UpdateInstructorInput struct {
	CourseID              string  `json:"course_id" validate:"notblank"`
	Email                 string  `json:"email" validate:"required,email"`
	NewEmail              *string `json:"new_email" validate:"omitempty,email"`
	Name                  *string `json:"name"`
	Role                  *string `json:"role"`
	IsDisplayedToStudents *bool   `json:"is_displayed_to_students"`
}

// RosterService mutates course membership and runs the response cascades
// each change implies.
type RosterService struct {
	base
	cascade *cascade.Manager
	cache   Invalidator
}

func NewRosterService(store *repository.Store, manager *cascade.Manager, log *logger.Logger, opts ...Option) *RosterService {
	return &RosterService{
		base:    newBase(store, log, opts),
		cascade: manager,
		cache:   noopInvalidator{},
	}
}

// WithCache registers the roster cache to invalidate after each change.
func (s *RosterService) WithCache(cache Invalidator) *RosterService {
	if cache != nil {
		s.cache = cache
	}
	return s
}

func (s *RosterService) EnrollStudent(ctx context.Context, in EnrollStudentInput) (*domain.Student, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.Courses.Get(ctx, in.CourseID); err != nil {
		return nil, err
	}
	section := in.Section
	if section == "" {
		section = domain.DefaultSection
	}
	now := s.now()
	st := &domain.Student{
		CourseID:  in.CourseID,
		Email:     in.Email,
		Name:      in.Name,
		Team:      in.Team,
		Section:   section,
		GoogleID:  in.GoogleID,
		CreatedAt: now,
		EditedAt:  now,
	}
	if err := s.store.Students.Create(ctx, st); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, in.CourseID)
	return st, nil
}

// UpdateStudent applies an email change first, so responses are re-keyed
// before the team and section cascades run under the new email.
func (s *RosterService) UpdateStudent(ctx context.Context, in UpdateStudentInput) (*domain.Student, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	st, err := s.store.Students.Get(ctx, in.CourseID, in.Email)
	if err != nil {
		return nil, err
	}
	defer s.cache.Invalidate(ctx, in.CourseID)

	oldEmail, oldTeam, oldSection := st.Email, st.Team, st.Section
	if in.NewEmail != nil && *in.NewEmail != st.Email {
		if err := s.changeStudentEmail(ctx, st, *in.NewEmail); err != nil {
			return nil, err
		}
	}
	if in.Name != nil {
		st.Name = *in.Name
	}
	if in.Team != nil {
		st.Team = *in.Team
	}
	if in.Section != nil {
		st.Section = *in.Section
	}
	st.EditedAt = s.now()
	if err := s.store.Students.Update(ctx, oldEmail, st); err != nil {
		return nil, err
	}

	if st.Team != oldTeam {
		n, err := s.cascade.OnTeamChange(ctx, st.CourseID, st.Email, oldTeam, st.Team)
		if err != nil {
			return nil, err
		}
		s.log(ctx).Info("team change cascaded",
			zap.String("course_id", st.CourseID), zap.String("email", st.Email), zap.Int("deleted", n))
	}
	if st.Section != oldSection {
		if _, err := s.cascade.OnSectionChange(ctx, st.CourseID, st.Email, st.Section); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *RosterService) changeStudentEmail(ctx context.Context, st *domain.Student, newEmail string) error {
	if err := s.ensureFree(ctx, st.CourseID, newEmail); err != nil {
		return err
	}
	if _, err := s.cascade.ChangeParticipantIdentifier(ctx, st.CourseID, st.Email, newEmail); err != nil {
		return err
	}
	if _, err := s.cascade.ChangeExtensionOwner(ctx, st.CourseID, st.Email, newEmail, false); err != nil {
		return err
	}
	st.Email = newEmail
	return nil
}

func (s *RosterService) ensureFree(ctx context.Context, courseID, email string) error {
	_, errStudent := s.store.Students.Get(ctx, courseID, email)
	_, errInstructor := s.store.Instructors.Get(ctx, courseID, email)
	if errStudent == nil || errInstructor == nil {
		return fmt.Errorf("%s is already enrolled in %s: %w", email, courseID, errdefs.ErrAlreadyExists)
	}
	if !isNotFound(errStudent) {
		return errStudent
	}
	if !isNotFound(errInstructor) {
		return errInstructor
	}
	return nil
}

// DeleteStudent removes the student and everything the student owns in
// the course. A missing student is not an error.
func (s *RosterService) DeleteStudent(ctx context.Context, courseID, email string) (domain.DeleteResult, error) {
	st, err := s.store.Students.Get(ctx, courseID, email)
	if isNotFound(err) {
		return domain.DeleteResult{}, nil
	}
	if err != nil {
		return domain.DeleteResult{}, err
	}
	defer s.cache.Invalidate(ctx, courseID)

	if _, err := s.cascade.DeleteForStudent(ctx, courseID, st.Email, st.Team); err != nil {
		return domain.DeleteResult{}, err
	}
	removed, err := s.store.Students.Delete(ctx, courseID, email)
	return domain.DeleteResult{Deleted: removed}, err
}

// DeleteAllStudents unenrolls every student within the time budget. A run
// that returns Complete false is resumed by calling it again.
func (s *RosterService) DeleteAllStudents(ctx context.Context, courseID string, until time.Time) (cascade.BatchProgress, error) {
	defer s.cache.Invalidate(ctx, courseID)
	return s.cascade.PurgeStudents(ctx, courseID, until)
}

func (s *RosterService) AddInstructor(ctx context.Context, in AddInstructorInput) (*domain.Instructor, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.Courses.Get(ctx, in.CourseID); err != nil {
		return nil, err
	}
	now := s.now()
	inst := &domain.Instructor{
		CourseID:              in.CourseID,
		Email:                 in.Email,
		Name:                  in.Name,
		GoogleID:              in.GoogleID,
		Role:                  in.Role,
		IsDisplayedToStudents: in.IsDisplayedToStudents,
		CreatedAt:             now,
		EditedAt:              now,
	}
	if err := s.store.Instructors.Create(ctx, inst); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, in.CourseID)
	return inst, nil
}

func (s *RosterService) UpdateInstructor(ctx context.Context, in UpdateInstructorInput) (*domain.Instructor, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	inst, err := s.store.Instructors.Get(ctx, in.CourseID, in.Email)
	if err != nil {
		return nil, err
	}
	defer s.cache.Invalidate(ctx, in.CourseID)

	oldEmail := inst.Email
	if in.NewEmail != nil && *in.NewEmail != inst.Email {
		newEmail := *in.NewEmail
		if err := s.ensureFree(ctx, inst.CourseID, newEmail); err != nil {
			return nil, err
		}
		if _, err := s.cascade.ChangeParticipantIdentifier(ctx, inst.CourseID, oldEmail, newEmail); err != nil {
			return nil, err
		}
		if _, err := s.cascade.ChangeExtensionOwner(ctx, inst.CourseID, oldEmail, newEmail, true); err != nil {
			return nil, err
		}
		if err := s.renameCreator(ctx, inst.CourseID, oldEmail, newEmail); err != nil {
			return nil, err
		}
		inst.Email = newEmail
	}
	if in.Name != nil {
		inst.Name = *in.Name
	}
	if in.Role != nil {
		inst.Role = *in.Role
	}
	if in.IsDisplayedToStudents != nil {
		inst.IsDisplayedToStudents = *in.IsDisplayedToStudents
	}
	inst.EditedAt = s.now()
	if err := s.store.Instructors.Update(ctx, oldEmail, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// renameCreator keeps SELF questions answerable by a session creator
// whose email changed.
func (s *RosterService) renameCreator(ctx context.Context, courseID, oldEmail, newEmail string) error {
	sessions, err := s.store.Sessions.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if session.CreatorEmail != oldEmail {
			continue
		}
		session.CreatorEmail = newEmail
		if err := s.store.Sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update creator of %s: %w", session.Key(), err)
		}
	}
	return nil
}

func (s *RosterService) DeleteInstructor(ctx context.Context, courseID, email string) (domain.DeleteResult, error) {
	if _, err := s.store.Instructors.Get(ctx, courseID, email); err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			return domain.DeleteResult{}, nil
		}
		return domain.DeleteResult{}, err
	}
	defer s.cache.Invalidate(ctx, courseID)

	if _, err := s.cascade.DeleteForInstructor(ctx, courseID, email); err != nil {
		return domain.DeleteResult{}, err
	}
	removed, err := s.store.Instructors.Delete(ctx, courseID, email)
	return domain.DeleteResult{Deleted: removed}, err
}

func (s *RosterService) Students(ctx context.Context, courseID string) ([]*domain.Student, error) {
	return s.store.Students.ListByCourse(ctx, courseID)
}

func (s *RosterService) Instructors(ctx context.Context, courseID string) ([]*domain.Instructor, error) {
	return s.store.Instructors.ListByCourse(ctx, courseID)
}
