package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tasknest/tasknest-go/internal/config"
	"github.com/tasknest/tasknest-go/internal/crypto"
	"github.com/tasknest/tasknest-go/internal/handler"
	"github.com/tasknest/tasknest-go/internal/logging"
	"github.com/tasknest/tasknest-go/internal/repository"
	"github.com/tasknest/tasknest-go/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := repository.Open(connectCtx, repository.Options{
		Driver:        cfg.StoreDriver,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		MySQLDSN:      cfg.DatabaseDSN,
	})
	cancelConnect()
	if err != nil {
		slog.Error("store connection failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	tokens, err := crypto.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry)
	if err != nil {
		slog.Error("token service setup failed", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(store.Users, tokens, cfg.BcryptCost)
	taskService := service.NewTaskService(store.Tasks)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handler.NewRouter(handler.Deps{
			Auth:           authService,
			Tasks:          taskService,
			Tokens:         tokens,
			Health:         store.Health,
			RequestTimeout: cfg.RequestTimeout,
			ExposeErrors:   cfg.ExposeErrors,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	if err := store.Close(ctx); err != nil {
		slog.Error("closing store", "error", err)
	}

	slog.Info("server stopped")
}
