package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/quizgrade-backend/internal/cache"
	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/database"
	"github.com/stemsi/quizgrade-backend/internal/loader"
	"github.com/stemsi/quizgrade-backend/internal/logger"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/service"
)

func main() {
	var (
		file   string
		policy string
	)
	flag.StringVar(&file, "file", "", "Path to a .json, .yaml or .yml quiz document")
	flag.StringVar(&policy, "policy", string(repository.LoadPolicyUpsert), "Load policy: upsert or replace")
	flag.Parse()

	if file == "" {
		fmt.Println("Usage: load-quizzes -file quizzes.json [-policy upsert|replace]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	loadPolicy := repository.LoadPolicy(policy)
	if loadPolicy != repository.LoadPolicyUpsert && loadPolicy != repository.LoadPolicyReplace {
		fmt.Printf("Error: unknown policy %q\n", policy)
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat), "load-quizzes")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Redis holds cached quiz papers; stale entries are invalidated after the load.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	quizService := service.NewQuizService(
		repository.NewQuizRepository(pool),
		cache.NewQuizCache(rdb, cfg.QuizCacheTTL),
		log,
	)

	res, err := loader.New(quizService, log).LoadFile(ctx, file, loadPolicy)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Load failed")
	}

	fmt.Printf("Loaded %s: %d created, %d updated, %d deleted, %d kept (have submissions)\n",
		file, res.Created, res.Updated, res.Deleted, res.Skipped)
}
