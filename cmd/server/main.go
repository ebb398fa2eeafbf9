package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade-backend/internal/cache"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/database"
	"github.com/stemsi/quizgrade-backend/internal/handler"
	"github.com/stemsi/quizgrade-backend/internal/loader"
	"github.com/stemsi/quizgrade-backend/internal/logger"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/router"
	"github.com/stemsi/quizgrade-backend/internal/service"
	"github.com/stemsi/quizgrade-backend/internal/validator"
	"github.com/stemsi/quizgrade-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting quiz grading backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories & Caches ─────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	quizRepo := repository.NewQuizRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	quizCache := cache.NewQuizCache(rdb, cfg.QuizCacheTTL)
	draftStore := cache.NewDraftStore(rdb, cfg.DraftTTL)
	finalizeQueue := cache.NewFinalizeQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo)
	quizService := service.NewQuizService(quizRepo, quizCache, log)
	submissionService := service.NewSubmissionService(quizService, submissionRepo, draftStore, log)
	reviewService := service.NewReviewService(quizService, submissionRepo, finalizeQueue, cfg.RequireFullyGraded, log)
	quizLoader := loader.New(quizService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Quiz:       handler.NewQuizHandler(quizService, submissionService, quizLoader),
		Submission: handler.NewSubmissionHandler(submissionService),
		Review:     handler.NewReviewHandler(reviewService),
		WS:         handler.NewWSHandler(submissionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	finalizationWorker := worker.NewFinalizationWorker(rdb, reviewService, cfg.FinalizeBatchSize, log)
	go func() {
		defer close(workerDone)
		finalizationWorker.Start(workerCtx)
	}()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Quiz papers are cached before accepting traffic so the first wave of
	// students does not hit PostgreSQL at once.
	if err := quizService.PrewarmAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the finalization worker and let it flush its current batch.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Finalization worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
