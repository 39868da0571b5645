package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	configs "feedback_service/config"
	"feedback_service/internal/app"
	"feedback_service/internal/handler"
	"feedback_service/internal/mailqueue"
	"feedback_service/internal/middleware"
	"feedback_service/internal/reminder"
	"feedback_service/internal/repository"
	"feedback_service/internal/repository/memory"
	"feedback_service/internal/repository/postgres"
	"feedback_service/internal/roster"
	"feedback_service/pkg/cache"
	"feedback_service/pkg/db"
	"feedback_service/pkg/kafka"
	"feedback_service/pkg/logger"
)

func main() {
	cfg, err := configs.Load()
	if err != nil {
		logger.New("info").Fatalf("Failed to load config: %v", err)
	}

	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	store, closeStore := openStore(cfg, log)
	defer closeStore()

	var provider roster.Provider = roster.NewRepositoryProvider(store.Students, store.Instructors)
	deps := app.Deps{Store: store, Logger: log}
	if cfg.Redis.Address != "" {
		redisCache := cache.NewRedisCache(cache.NewRedisClient(cache.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		defer func() { _ = redisCache.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisCache.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("Redis unavailable, roster cache disabled", zap.Error(err))
		} else {
			cached := roster.NewCachedProvider(provider, redisCache, cfg.Redis.RosterTTL, log)
			provider = cached
			deps.Invalidator = cached
		}
	}
	deps.Roster = provider

	kafkaProducer, err := kafka.NewProducer(kafka.Config{
		Brokers:      cfg.Kafka.Brokers,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer func() { _ = kafkaProducer.Close() }()

	deps.Mailer = mailqueue.New(kafkaProducer, mailqueue.Config{
		Topic:            cfg.Kafka.EmailTopic,
		MaxRetries:       cfg.Mail.MaxRetries,
		BaseDelay:        cfg.Mail.BaseDelay,
		FailureThreshold: cfg.Mail.FailureThreshold,
		ResetTimeout:     cfg.Mail.ResetTimeout,
	}, log)
	deps.Unpublished = mailqueue.NewTasks(kafkaProducer, cfg.Kafka.UnpublishedTopic, log)
	deps.Reminders = reminder.Config{
		OpeningSoonWindow: cfg.Reminders.OpeningSoonWindow,
		ClosingWindow:     cfg.Reminders.ClosingWindow,
		ClosedWindow:      cfg.Reminders.ClosedWindow,
	}
	deps.BatchSize = cfg.Cascade.BatchSize

	services := app.New(deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewReminderWorker(services.Scheduler, cfg.Reminders.Interval, log)
	go worker.Start(ctx)

	remindConsumer := NewRemindConsumer(services.Scheduler, RemindTopics{
		Remind:      cfg.Kafka.RemindTopic,
		Resend:      cfg.Kafka.ResendTopic,
		Unpublished: cfg.Kafka.UnpublishedTopic,
	}, log)
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topics:  remindConsumer.Topics(),
	}, log)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer func() { _ = consumer.Close() }()
	go func() {
		if err := consumer.Run(ctx, remindConsumer.Handle); err != nil {
			log.Error("Consumer stopped", zap.Error(err))
		}
	}()

	interceptor := grpc_middleware.ChainUnaryServer(
		grpc_recovery.UnaryServerInterceptor(),
		logger.NewUnaryLoggingInterceptor(log),
	)
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor),
		grpc.ConnectionTimeout(cfg.GRPC.Timeout),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	listener, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		log.Infof("Starting gRPC server on %s", cfg.GRPC.Address)
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newRouter(services, cfg, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("Starting HTTP server on %s", cfg.HTTP.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	log.Info("Server stopped")
}

func newRouter(services *app.App, cfg *configs.Config, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(log))
	r.Get("/health", handler.Health)
	handler.NewCronHandler(services.Scheduler, log).Routes(r)
	handler.NewPurgeHandler(services.Courses, cfg.Cascade.TimeBudget, log).Routes(r)
	return r
}

func openStore(cfg *configs.Config, log *logger.Logger) (*repository.Store, func()) {
	if cfg.Storage.Driver == configs.StorageMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewStore(), func() {}
	}

	pg, err := db.NewPostgres(db.Config{
		Host:           cfg.DB.Host,
		Port:           cfg.DB.Port,
		User:           cfg.DB.User,
		Password:       cfg.DB.Password,
		DBName:         cfg.DB.DBName,
		SSLMode:        cfg.DB.SSLMode,
		MigrationsPath: cfg.DB.MigrationsPath,
		MaxOpenConns:   cfg.DB.MaxOpenConns,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return postgres.NewStore(pg.DB()), func() { _ = pg.Close() }
}
