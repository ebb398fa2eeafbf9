package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/quizgrade-backend/internal/config"
	"github.com/stemsi/quizgrade-backend/internal/database"
	"github.com/stemsi/quizgrade-backend/internal/logger"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/repository"
	"github.com/stemsi/quizgrade-backend/internal/service"
)

func main() {
	var (
		count    int
		prefix   string
		password string
	)
	flag.IntVar(&count, "count", 50, "Number of student accounts to create")
	flag.StringVar(&prefix, "prefix", "student", "Username prefix; accounts are named <prefix>1..<prefix>N")
	flag.StringVar(&password, "password", "quizgrade", "Password shared by every seeded account")
	flag.Parse()

	cfg := config.Load()
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat), "seed-students")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool))

	fmt.Printf("=== Seeding %d Students ===\n", count)

	created, skipped := 0, 0
	for i := 1; i <= count; i++ {
		username := fmt.Sprintf("%s%d", prefix, i)
		name := fmt.Sprintf("Student %d", i)

		_, err := authService.Register(ctx, username, name, password, model.RoleStudent)
		switch {
		case errors.Is(err, repository.ErrConflict):
			skipped++
		case err != nil:
			fmt.Printf("Error creating %s: %v\n", username, err)
		default:
			created++
			if created%10 == 0 {
				fmt.Printf("Created %d students...\n", created)
			}
		}
	}

	fmt.Printf("\nSeed completed! Created %d, skipped %d existing, of %d.\n", created, skipped, count)
}
