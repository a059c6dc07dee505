// Command seed provisions a first administrator account and a default solver
// parameter set so a fresh install can queue runs immediately.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/harborview/timetable-api/internal/models"
	"github.com/harborview/timetable-api/internal/repository"
	"github.com/harborview/timetable-api/pkg/config"
	"github.com/harborview/timetable-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
	)
	flag.StringVar(&email, "email", "admin@example.edu", "administrator email")
	flag.StringVar(&password, "password", "", "administrator password (required)")
	flag.StringVar(&fullName, "name", "Administrator", "administrator display name")
	flag.Parse()

	if password == "" {
		log.Fatal("password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	users := repository.NewUserRepository(db)
	if err := users.Create(ctx, &models.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         "ADMIN",
		Active:       true,
	}); err != nil {
		log.Fatalf("failed to create administrator: %v", err)
	}
	log.Printf("created administrator %s", email)

	configs := repository.NewOptimizationRepository(db)
	if _, err := configs.FindDefaultConfig(ctx); err == nil {
		log.Print("default optimization config already present")
		return
	}

	if err := configs.CreateConfig(ctx, &models.OptimizationConfig{
		Name:              "standard",
		Description:       "balanced defaults for weekly runs",
		Algorithm:         models.AlgorithmGenetic,
		PopulationSize:    cfg.Solver.PopulationSize,
		MaxGenerations:    cfg.Solver.MaxGenerations,
		MutationRate:      cfg.Solver.MutationRate,
		CrossoverRate:     cfg.Solver.CrossoverRate,
		EliteSize:         cfg.Solver.EliteSize,
		TournamentSize:    cfg.Solver.TournamentSize,
		MaxRuntimeSeconds: int(cfg.Solver.MaxRuntime / time.Second),
		StagnationLimit:   cfg.Solver.StagnationLimit,
		ThreadCount:       cfg.Solver.ThreadCount,
		LogFrequency:      cfg.Solver.LogFrequency,
		IsDefault:         true,
	}); err != nil {
		log.Fatalf("failed to create default config: %v", err)
	}
	log.Print("created default optimization config")
}
