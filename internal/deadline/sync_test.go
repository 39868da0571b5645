package deadline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_service/internal/domain"
	"feedback_service/internal/repository/memory"
)

func TestSyncer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := session(end)
	s.StudentDeadlines["stale@x.com"] = end.Add(time.Hour)
	require.NoError(t, store.Sessions.Create(ctx, s))
	require.NoError(t, store.Extensions.Create(ctx, &domain.DeadlineExtension{
		CourseID: "c1", SessionName: "s1", UserEmail: "a@x.com", EndTime: end.Add(2 * time.Hour),
	}))

	syncer := NewSyncer(store.Sessions, store.Extensions)
	require.NoError(t, syncer.Sync(ctx, s.Key()))

	got, err := store.Sessions.Get(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.NotContains(t, got.StudentDeadlines, "stale@x.com")
	assert.True(t, got.StudentDeadlines["a@x.com"].Equal(end.Add(2*time.Hour)))
	assert.Empty(t, got.InstructorDeadlines)
}
