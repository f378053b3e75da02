package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tallyup/tally-backend/internal/adapter/httpapi"
	"github.com/tallyup/tally-backend/internal/adapter/repository/postgres"
	"github.com/tallyup/tally-backend/internal/adapter/repository/sqlite"
	"github.com/tallyup/tally-backend/internal/auth"
	"github.com/tallyup/tally-backend/internal/config"
	"github.com/tallyup/tally-backend/internal/domain"
	"github.com/tallyup/tally-backend/internal/usecase/seeder"
	"github.com/tallyup/tally-backend/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	logging.Setup()
	cfg := config.Load()

	directory, drafts, closer, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx := context.Background()
	if cfg.SeedDemo {
		if err := seeder.NewDirectorySeeder(directory).Seed(ctx); err != nil {
			slog.Error("failed to seed demo directory", "error", err)
			os.Exit(1)
		}
		slog.Info("demo directory seeded")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	server := httpapi.NewServer(httpapi.Options{
		Directory:       directory,
		Drafts:          drafts,
		JWT:             jwtManager,
		Logger:          slog.Default(),
		Currency:        cfg.DefaultCurrency,
		RequireCategory: cfg.RequireCategory,
		DevAuth:         cfg.DevAuth,
	})

	go func() {
		if err := server.Start(cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(server)
}

// openStore picks the storage backend from configuration. Both backends
// serve the same two repository interfaces.
func openStore(cfg *config.Config) (domain.DirectoryAdmin, domain.DraftRepository, io.Closer, error) {
	switch cfg.StorageDriver {
	case "postgres":
		db, err := postgres.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewDirectoryRepository(db), postgres.NewDraftRepository(db), db, nil
	default:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store, nil
	}
}

// waitForShutdown blocks until SIGTERM or SIGINT, then drains the server
func waitForShutdown(server *httpapi.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	slog.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
