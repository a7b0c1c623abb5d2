package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/okian/authclient/internal/authctl"
	"github.com/okian/authclient/internal/config"
	"github.com/okian/authclient/pkg/logger"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	// stdout carries command output; logs go to stderr
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel))
		_ = logger.SetLevelString("info")
	}

	err = authctl.Run(ctx, cfg, logger.Named("authctl"), os.Args[1:], os.Stdout, os.Stderr)
	if err == nil {
		return
	}
	os.Stderr.WriteString("authctl: " + authctl.Message(err) + "\n")
	stop()
	os.Exit(1)
}
