package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/authclient/internal/adapters/http/stub"
	app "github.com/okian/authclient/internal/app"
	"github.com/okian/authclient/internal/config"
	"github.com/okian/authclient/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(
		app.WithAddr(cfg.StubAddr),
		app.WithLogger(loggerInstance),
		app.WithStubOptions(stubOptions(cfg)...),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start stub server", logger.Error(err))
		os.Exit(1)
	}
	loggerInstance.Info(ctx, "seeded account", logger.String("username", seedUsername))

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
}

const (
	seedUsername = "admin"
	seedPassword = "admin123"
)

// stubOptions maps configuration onto the stub server.
func stubOptions(cfg *config.Config) []stub.Option {
	if cfg.StubJWTSecret == config.New().StubJWTSecret {
		logger.Get().Warn(context.Background(), "using the default JWT secret; set AUTHCLIENT_STUB_JWT_SECRET")
	}
	return []stub.Option{
		stub.WithJWTSecret(cfg.StubJWTSecret),
		stub.WithTokenTTL(cfg.StubTokenTTL()),
		stub.WithCaptchaEnabled(cfg.StubCaptchaEnabled),
		stub.WithUser(seedUsername, seedPassword, "Administrator", "admin"),
	}
}
