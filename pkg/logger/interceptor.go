package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
)

func NewUnaryLoggingInterceptor(l *Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		clientIP := "unknown"
		if p, ok := peer.FromContext(ctx); ok {
			clientIP = p.Addr.String()
		}

		reqLogger := l.With(zap.String("method", info.FullMethod), zap.String("client_ip", clientIP))
		ctx = ContextWithLogger(ctx, reqLogger)

		resp, err := handler(ctx, req)

		if err != nil {
			reqLogger.Error("request failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		} else {
			reqLogger.Debug("request handled", zap.Duration("duration", time.Since(start)))
		}

		return resp, err
	}
}
