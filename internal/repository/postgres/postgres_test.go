package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"feedback_service/internal/domain"
	"feedback_service/internal/errdefs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"NoRows", sql.ErrNoRows, errdefs.ErrNotFound},
		{"UniqueViolation", &pq.Error{Code: "23505"}, errdefs.ErrAlreadyExists},
		{"ForeignKey", &pq.Error{Code: "23503"}, errdefs.ErrInvalidParameters},
		{"ConnectionFailure", &pq.Error{Code: "08006"}, errdefs.ErrUnavailable},
		{"AdminShutdown", &pq.Error{Code: "57P01"}, errdefs.ErrUnavailable},
		{"BadConn", driver.ErrBadConn, errdefs.ErrUnavailable},
		{"ConnDone", sql.ErrConnDone, errdefs.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err, "thing"), tt.want)
		})
	}

	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, mapError(nil, "thing"))
	})

	t.Run("OtherErrorsPassThrough", func(t *testing.T) {
		boom := errors.New("syntax error")
		err := mapError(boom, "thing")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, errdefs.ErrUnavailable)
	})
}

func TestParticipantTypesRoundTrip(t *testing.T) {
	in := []domain.ParticipantType{domain.ParticipantStudents, domain.ParticipantInstructors}
	assert.Equal(t, in, toParticipantTypes(participantTypes(in)))
	assert.Empty(t, toParticipantTypes(participantTypes(nil)))
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, timePtr(nullTime(nil)))

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := timePtr(nullTime(&ts))
	if assert.NotNil(t, got) {
		assert.True(t, got.Equal(ts))
	}
}

func TestResultsAt(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.True(t, resultsAt(domain.ResultsVisibleAt(ts)).Valid)
	assert.False(t, resultsAt(domain.ResultsVisibleLater()).Valid)
	assert.False(t, resultsAt(domain.ResultsVisibleNever()).Valid)
}
