package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"example.com/scoreboard/internal/app"
	"example.com/scoreboard/internal/auth"
	"example.com/scoreboard/internal/config"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := newLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("init failed", "err", err)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	lvl, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("env", cfg.Env)
}

// hashPassword prints a bcrypt hash for OPERATOR_PASSWORD_HASH.
func hashPassword(args []string, out io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: server hash-password <password>")
	}
	hash, err := auth.HashPassword(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
