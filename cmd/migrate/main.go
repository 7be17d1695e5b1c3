package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/angelmondragon/cellar-backend/internal/users"
	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
	"github.com/angelmondragon/cellar-backend/pkg/migrate"
	"github.com/angelmondragon/cellar-backend/pkg/security"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	// Flags
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|seed|seed-admin")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")

	// Command-specific flags
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	username := flag.String("username", "admin", "admin username (for seed-admin)")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	// Commands that do NOT require DB
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		logg.Info(ctx, "migrate ready")
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		logg.Info(ctx, "migrate ready")
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	// Everything else needs DB
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	dialect := migrate.Dialect(cfg.DB)
	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up":
		if err := migrate.Run(ctx, sqlDB, dialect, *dir, "up"); err != nil {
			fmt.Fprintf(os.Stderr, "goose up failed: %v\n", err)
			os.Exit(1)
		}

	case "down":
		if err := migrate.Run(ctx, sqlDB, dialect, *dir, "down"); err != nil {
			fmt.Fprintf(os.Stderr, "goose down failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		if err := migrate.Run(ctx, sqlDB, dialect, *dir, "status"); err != nil {
			fmt.Fprintf(os.Stderr, "goose status failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, dialect, *dir, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	case "seed":
		if err := migrate.SeedVocabularies(ctx, dbClient); err != nil {
			fmt.Fprintf(os.Stderr, "seeding vocabularies failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("vocabularies seeded")

	case "seed-admin":
		password, err := seedAdmin(ctx, dbClient, cfg.Password, *username)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seeding admin failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin %q with temporary password: %s\n", *username, password)

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

// seedAdmin creates an active admin with a generated password and returns the plaintext once.
func seedAdmin(ctx context.Context, client *db.Client, cfg config.PasswordConfig, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("username required")
	}
	repo := users.NewRepository(client.DB())
	if existing, err := repo.FindByUsername(ctx, username); err == nil && existing != nil {
		return "", fmt.Errorf("user %q already exists", username)
	}

	password, err := security.GenerateTempPassword(16)
	if err != nil {
		return "", err
	}
	hash, err := security.HashPassword(password, cfg)
	if err != nil {
		return "", err
	}
	active := true
	if _, err := repo.Create(ctx, users.CreateUserDTO{
		Username:     username,
		PasswordHash: hash,
		Role:         enums.RoleAdmin,
		IsActive:     &active,
	}); err != nil {
		return "", err
	}
	return password, nil
}
