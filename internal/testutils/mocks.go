// Package testutils holds test doubles shared across packages.
package testutils

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"feedback_service/internal/reminder"
)

// MockSender stands in for the Kafka producer behind the email queue.
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, topic string, message interface{}) error {
	args := m.Called(ctx, topic, message)
	return args.Error(0)
}

// RecordingMailer accepts every email and keeps it for inspection.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []reminder.Email
}

func (m *RecordingMailer) Enqueue(_ context.Context, e reminder.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *RecordingMailer) Sent() []reminder.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]reminder.Email(nil), m.sent...)
}
