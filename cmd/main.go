package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hireflow/hireflow/internal/api"
	"github.com/hireflow/hireflow/internal/config"
	"github.com/hireflow/hireflow/internal/configs/env"
	"github.com/hireflow/hireflow/internal/exam"
	"github.com/hireflow/hireflow/internal/export"
	"github.com/hireflow/hireflow/internal/infra/mongo"
	redisInfra "github.com/hireflow/hireflow/internal/infra/redis"
	"github.com/hireflow/hireflow/internal/logger"
	"github.com/hireflow/hireflow/internal/metrics"
	"github.com/hireflow/hireflow/internal/repository"
	"github.com/hireflow/hireflow/internal/session"
	"github.com/hireflow/hireflow/internal/stream"
	"github.com/hireflow/hireflow/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().Msg("Starting hireflow assessment service")

	// Initialize Prometheus metrics
	metrics.InitPrometheus()
	log.Info().Msg("Prometheus metrics initialized")

	// Start metrics server in separate goroutine on port 2112
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":2112",
		Handler: metricsMux,
	}
	go func() {
		log.Info().Str("port", "2112").Msg("Metrics server started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Metrics server failed to start")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(ctx)

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	// Initialize repositories
	mongoRepo := repository.NewMongoRepository(mongoClient)
	invitationsRepo := repository.NewInvitationsRepository(mongoRepo)
	testsRepo := repository.NewTestsRepository(mongoRepo)
	resultsRepo := repository.NewResultsRepository(mongoRepo)
	applicantsRepo := repository.NewApplicantsRepository(mongoRepo)
	sessionsRepo := repository.NewSessionsRepository(mongoRepo)

	bucket, err := mongoClient.Bucket("verification_images")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GridFS bucket")
	}
	imagesRepo := repository.NewImagesRepository(bucket)

	// Session state: in-memory manager with a Redis backstop for code,
	// verification memoization and step status.
	backstop := session.NewBackstop(redisClient)
	sessions := session.NewManager(backstop)

	examSvc := exam.NewService(cfg, sessions, invitationsRepo, testsRepo, resultsRepo, backstop, sessionsRepo)

	// Worker pool for export document enrichment
	workerPool := worker.NewPool(ctx)
	defer workerPool.Close()

	var docClient *export.DocumentClient
	if cfg.DocServiceBaseURL != "" {
		docClient = export.NewDocumentClient(cfg.DocServiceBaseURL, cfg.DocServiceAPIKey, cfg.ExportTimeout, cfg.ExportMaxAttempts)
	}
	exportSvc := export.NewService(applicantsRepo, docClient, workerPool)

	// Initialize retry handler and runner-result consumer
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		examSvc,
		retryHandler,
		cfg.StreamRetentionDuration,
	)
	log.Info().Str("consumer_name", consumerName).Msg("Runner-result consumer initialized")

	router := api.SetupRoutes(cfg, examSvc, exportSvc, invitationsRepo, testsRepo, resultsRepo, imagesRepo)

	// Start runner-result consumer in background
	consumerCtx, consumerCancel := context.WithCancel(ctx)
	go func() {
		defer consumerCancel()
		if err := consumer.Start(consumerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Runner-result consumer error")
		}
	}()
	log.Info().Msg("Runner-result consumer started")

	// Start the countdown sweeper
	go examSvc.RunSweeper(ctx)
	log.Info().Msg("Session sweeper started")

	// Start Gin server
	srv := api.StartServer(router, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down Gin server")
	}

	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsServer.Shutdown(metricsCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
