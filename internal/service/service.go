// Package service implements the instructor-facing operations on courses,
// sessions, questions, responses, comments and rosters. Every mutation
// that touches a response key or a deleted entity goes through the
// cascade manager.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feedback_service/internal/errdefs"
	"feedback_service/internal/repository"
	"feedback_service/internal/validation"
	"feedback_service/pkg/logger"
)

type base struct {
	store     *repository.Store
	validator *validation.Validator
	logger    *logger.Logger
	now       func() time.Time
}

type Option func(*base)

func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

func WithValidator(v *validation.Validator) Option {
	return func(b *base) { b.validator = v }
}

func newBase(store *repository.Store, log *logger.Logger, opts []Option) base {
	b := base{
		store:  store,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.validator == nil {
		b.validator = validation.New()
	}
	return b
}

func (b *base) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, b.logger)
}

// Invalidator drops cached roster data for a course.
type Invalidator interface {
	Invalidate(ctx context.Context, courseID string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, errdefs.ErrInvalidParameters)...)
}

func isNotFound(err error) bool {
	return errors.Is(err, errdefs.ErrNotFound)
}
