package cascade

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BatchProgress reports how far a budgeted batch delete got. When Complete
// is false the budget ran out; calling the same operation again resumes it.
type BatchProgress struct {
	Deleted  int  `json:"deleted"`
	Complete bool `json:"complete"`
}

type chunkFunc func(ctx context.Context, limit int) (int, error)

// drain runs fn in chunks until a chunk comes back short. It stops early,
// reporting false, once the budget deadline has passed.
func (m *Manager) drain(ctx context.Context, until time.Time, progress *BatchProgress, fn chunkFunc) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !until.IsZero() && m.now().After(until) {
			return false, nil
		}
		n, err := fn(ctx, m.batchSize)
		if err != nil {
			return false, err
		}
		progress.Deleted += n
		if n < m.batchSize {
			return true, nil
		}
	}
}

// PurgeCourse hard-deletes a course and everything in it, children first.
// A zero until means no budget.
func (m *Manager) PurgeCourse(ctx context.Context, courseID string, until time.Time) (BatchProgress, error) {
	steps := []struct {
		name string
		fn   chunkFunc
	}{
		{"comments", func(ctx context.Context, limit int) (int, error) {
			return m.store.Comments.DeleteByCourse(ctx, courseID, limit)
		}},
		{"responses", func(ctx context.Context, limit int) (int, error) {
			return m.store.Responses.DeleteByCourse(ctx, courseID, limit)
		}},
		{"questions", func(ctx context.Context, limit int) (int, error) {
			return m.store.Questions.DeleteByCourse(ctx, courseID, limit)
		}},
		{"deadline extensions", func(ctx context.Context, limit int) (int, error) {
			return m.store.Extensions.DeleteByCourse(ctx, courseID, limit)
		}},
		{"sessions", func(ctx context.Context, limit int) (int, error) {
			return m.store.Sessions.DeleteByCourse(ctx, courseID, limit)
		}},
		{"students", func(ctx context.Context, limit int) (int, error) {
			return m.store.Students.DeleteByCourse(ctx, courseID, limit)
		}},
		{"instructors", func(ctx context.Context, limit int) (int, error) {
			return m.store.Instructors.DeleteByCourse(ctx, courseID, limit)
		}},
	}

	var progress BatchProgress
	for _, step := range steps {
		done, err := m.drain(ctx, until, &progress, step.fn)
		if err != nil {
			return progress, fmt.Errorf("failed to delete %s of course %s: %w", step.name, courseID, err)
		}
		if !done {
			m.logger.Info("course purge paused",
				zap.String("course_id", courseID),
				zap.String("step", step.name),
				zap.Int("deleted", progress.Deleted),
			)
			return progress, nil
		}
	}

	removed, err := m.store.Courses.Delete(ctx, courseID)
	if err != nil {
		return progress, fmt.Errorf("failed to delete course %s: %w", courseID, err)
	}
	if removed {
		progress.Deleted++
	}
	progress.Complete = true
	return progress, nil
}

// PurgeStudents deletes every student of the course with their cascades.
func (m *Manager) PurgeStudents(ctx context.Context, courseID string, until time.Time) (BatchProgress, error) {
	var progress BatchProgress
	done, err := m.drain(ctx, until, &progress, func(ctx context.Context, limit int) (int, error) {
		students, err := m.store.Students.ListByCourse(ctx, courseID)
		if err != nil {
			return 0, err
		}
		if len(students) > limit {
			students = students[:limit]
		}
		for i, s := range students {
			if _, err := m.DeleteForStudent(ctx, courseID, s.Email, s.Team); err != nil {
				return i, err
			}
			if _, err := m.store.Students.Delete(ctx, courseID, s.Email); err != nil {
				return i, err
			}
		}
		return len(students), nil
	})
	if err != nil {
		return progress, fmt.Errorf("failed to delete students of course %s: %w", courseID, err)
	}
	progress.Complete = done
	return progress, nil
}
