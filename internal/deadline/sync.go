package deadline

import (
	"context"
	"fmt"

	"feedback_service/internal/domain"
	"feedback_service/internal/repository"
)

// Syncer rewrites the deadline maps cached on a session from the
// extension records, which are authoritative.
type Syncer struct {
	sessions   repository.SessionRepository
	extensions repository.DeadlineExtensionRepository
}

func NewSyncer(sessions repository.SessionRepository, extensions repository.DeadlineExtensionRepository) *Syncer {
	return &Syncer{sessions: sessions, extensions: extensions}
}

func (s *Syncer) Sync(ctx context.Context, key domain.SessionKey) error {
	exts, err := s.extensions.ListBySession(ctx, key.CourseID, key.Name)
	if err != nil {
		return fmt.Errorf("failed to list extensions of %s: %w", key, err)
	}
	students, instructors := BuildMaps(key, exts)
	if err := s.sessions.SetDeadlines(ctx, key, students, instructors); err != nil {
		return fmt.Errorf("failed to store deadlines of %s: %w", key, err)
	}
	return nil
}

// SyncAll syncs every session touched by the given extensions.
func (s *Syncer) SyncAll(ctx context.Context, exts []*domain.DeadlineExtension) error {
	seen := make(map[domain.SessionKey]struct{})
	for _, e := range exts {
		key := domain.SessionKey{CourseID: e.CourseID, Name: e.SessionName}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if err := s.Sync(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
