package memory

import (
	"context"
	"fmt"
	"sort"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

type studentRepository struct {
	db *studentTable
}

func (r *studentRepository) Create(_ context.Context, student *domain.Student) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := rosterKey{courseID: student.CourseID, email: student.Email}
	if _, ok := r.db.t[key]; ok {
		return fmt.Errorf("student %s: %w", student.Email, errdefs.ErrAlreadyExists)
	}
	s := *student
	r.db.t[key] = &s
	return nil
}

func (r *studentRepository) Get(_ context.Context, courseID, email string) (*domain.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if s, ok := r.db.t[rosterKey{courseID: courseID, email: email}]; ok {
		out := *s
		return &out, nil
	}
	return nil, fmt.Errorf("student %s: %w", email, errdefs.ErrNotFound)
}

func (r *studentRepository) query(match func(*domain.Student) bool) []*domain.Student {
	res := make([]*domain.Student, 0)
	for _, s := range r.db.t {
		if match(s) {
			out := *s
			res = append(res, &out)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Email < res[j].Email })
	return res
}

func (r *studentRepository) ListByCourse(_ context.Context, courseID string) ([]*domain.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(s *domain.Student) bool { return s.CourseID == courseID }), nil
}

func (r *studentRepository) ListByTeam(_ context.Context, courseID, team string) ([]*domain.Student, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	return r.query(func(s *domain.Student) bool { return s.CourseID == courseID && s.Team == team }), nil
}

func (r *studentRepository) Update(_ context.Context, email string, student *domain.Student) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	oldKey := rosterKey{courseID: student.CourseID, email: email}
	if _, ok := r.db.t[oldKey]; !ok {
		return fmt.Errorf("student %s: %w", email, errdefs.ErrNotFound)
	}
	newKey := rosterKey{courseID: student.CourseID, email: student.Email}
	if newKey != oldKey {
		if _, ok := r.db.t[newKey]; ok {
			return fmt.Errorf("student %s: %w", student.Email, errdefs.ErrAlreadyExists)
		}
		delete(r.db.t, oldKey)
	}
	s := *student
	r.db.t[newKey] = &s
	return nil
}

func (r *studentRepository) Delete(_ context.Context, courseID, email string) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := rosterKey{courseID: courseID, email: email}
	if _, ok := r.db.t[key]; !ok {
		return false, nil
	}
	delete(r.db.t, key)
	return true, nil
}

func (r *studentRepository) DeleteByCourse(_ context.Context, courseID string, limit int) (int, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	return deleteRosterKeys(r.db.t, courseID, limit), nil
}

type instructorRepository struct {
	db *instructorTable
}

func (r *instructorRepository) Create(_ context.Context, instructor *domain.Instructor) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := rosterKey{courseID: instructor.CourseID, email: instructor.Email}
	if _, ok := r.db.t[key]; ok {
		return fmt.Errorf("instructor %s: %w", instructor.Email, errdefs.ErrAlreadyExists)
	}
	i := *instructor
	r.db.t[key] = &i
	return nil
}

func (r *instructorRepository) Get(_ context.Context, courseID, email string) (*domain.Instructor, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if i, ok := r.db.t[rosterKey{courseID: courseID, email: email}]; ok {
		out := *i
		return &out, nil
	}
	return nil, fmt.Errorf("instructor %s: %w", email, errdefs.ErrNotFound)
}

func (r *instructorRepository) ListByCourse(_ context.Context, courseID string) ([]*domain.Instructor, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*domain.Instructor, 0)
	for _, i := range r.db.t {
		if i.CourseID == courseID {
			out := *i
			res = append(res, &out)
		}
	}
	sort.Slice(res, func(a, b int) bool { return res[a].Email < res[b].Email })
	return res, nil
}

func (r *instructorRepository) Update(_ context.Context, email string, instructor *domain.Instructor) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	oldKey := rosterKey{courseID: instructor.CourseID, email: email}
	if _, ok := r.db.t[oldKey]; !ok {
		return fmt.Errorf("instructor %s: %w", email, errdefs.ErrNotFound)
	}
	newKey := rosterKey{courseID: instructor.CourseID, email: instructor.Email}
	if newKey != oldKey {
		if _, ok := r.db.t[newKey]; ok {
			return fmt.Errorf("instructor %s: %w", instructor.Email, errdefs.ErrAlreadyExists)
		}
		delete(r.db.t, oldKey)
	}
	i := *instructor
	r.db.t[newKey] = &i
	return nil
}

func (r *instructorRepository) Delete(_ context.Context, courseID, email string) (bool, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := rosterKey{courseID: courseID, email: email}
	if _, ok := r.db.t[key]; !ok {
		return false, nil
	}
	delete(r.db.t, key)
	return true, nil
}

func (r *instructorRepository) DeleteByCourse(_ context.Context, courseID string, limit int) (int, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	return deleteRosterKeys(r.db.t, courseID, limit), nil
}

func deleteRosterKeys[T any](t map[rosterKey]T, courseID string, limit int) int {
	var keys []rosterKey
	for k := range t {
		if k.courseID == courseID {
			keys = append(keys, k)
		}
	}
	keys = takeFirst(keys, func(a, b rosterKey) bool { return a.email < b.email }, limit)
	for _, k := range keys {
		delete(t, k)
	}
	return len(keys)
}
