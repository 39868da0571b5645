package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
)

func TestFromContext(t *testing.T) {
	fallback := NewNop()

	t.Run("Fallback", func(t *testing.T) {
		assert.Same(t, fallback, FromContext(context.Background(), fallback))
	})

	t.Run("Stored", func(t *testing.T) {
		l := NewNop()
		ctx := ContextWithLogger(context.Background(), l)
		assert.Same(t, l, FromContext(ctx, fallback))
	})
}

func TestTraceID(t *testing.T) {
	_, ok := TraceID(context.Background())
	assert.False(t, ok)

	id, ok := TraceID(WithTraceID(context.Background(), "abc"))
	require.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestUnaryLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{ZapLogger: zap.New(core)}
	interceptor := NewUnaryLoggingInterceptor(l)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	t.Run("InjectsLogger", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			assert.NotSame(t, l, FromContext(ctx, l))
			return "ok", nil
		})
		require.NoError(t, err)
	})

	t.Run("LogsFailure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
	})
}
