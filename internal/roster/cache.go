package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feedback_service/internal/domain"
	"feedback_service/pkg/logger"
)

// Cache is a byte cache; pkg/cache.RedisCache implements it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// CachedProvider serves roster reads from a cache, falling back to next on
// a miss. Roster mutations must call Invalidate.
type CachedProvider struct {
	next   Provider
	cache  Cache
	ttl    time.Duration
	logger *logger.Logger
}

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: log}
}

func studentsKey(courseID string) string {
	return fmt.Sprintf("roster:%s:students", courseID)
}

func instructorsKey(courseID string) string {
	return fmt.Sprintf("roster:%s:instructors", courseID)
}

func (p *CachedProvider) StudentsForCourse(ctx context.Context, courseID string) ([]*domain.Student, error) {
	return cached(ctx, p, studentsKey(courseID), func() ([]*domain.Student, error) {
		return p.next.StudentsForCourse(ctx, courseID)
	})
}

func (p *CachedProvider) InstructorsForCourse(ctx context.Context, courseID string) ([]*domain.Instructor, error) {
	return cached(ctx, p, instructorsKey(courseID), func() ([]*domain.Instructor, error) {
		return p.next.InstructorsForCourse(ctx, courseID)
	})
}

// StudentsForTeam filters the cached course roster.
func (p *CachedProvider) StudentsForTeam(ctx context.Context, team, courseID string) ([]*domain.Student, error) {
	students, err := p.StudentsForCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	var members []*domain.Student
	for _, s := range students {
		if s.Team == team {
			members = append(members, s)
		}
	}
	return members, nil
}

func (p *CachedProvider) Invalidate(ctx context.Context, courseID string) {
	p.cache.Delete(ctx, studentsKey(courseID))
	p.cache.Delete(ctx, instructorsKey(courseID))
}

func cached[T any](ctx context.Context, p *CachedProvider, key string, load func() ([]T, error)) ([]T, error) {
	if data, ok := p.cache.Get(ctx, key); ok {
		var out []T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		p.logger.Warn("dropping unreadable roster cache entry", zap.String("key", key))
		p.cache.Delete(ctx, key)
	}

	out, err := load()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		p.logger.Warn("failed to encode roster for cache", zap.String("key", key), zap.Error(err))
		return out, nil
	}
	p.cache.Set(ctx, key, data, p.ttl)
	return out, nil
}
