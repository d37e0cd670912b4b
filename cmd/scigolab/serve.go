package main

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigolab/auth"
	"github.com/YuminosukeSato/scigolab/server"
	"github.com/YuminosukeSato/scigolab/service"
	"github.com/YuminosukeSato/scigolab/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API on server.addr.

Settings come from --config and SCIGOLAB_* environment variables.
SCIGOLAB_JWT_SECRET (32 bytes or more) is required.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(store.Options{Path: cfg.Storage.Path, InMemory: cfg.Storage.InMemory})
	if err != nil {
		return err
	}
	defer st.Close()

	verifier, err := auth.NewVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}
	svc := service.New(st, service.Options{
		MaxConcurrentRuns: cfg.Experiments.MaxConcurrentRuns,
		Seed:              cfg.Experiments.Seed,
		RunTimeout:        cfg.Experiments.RunTimeout,
	})
	srv := server.New(svc, verifier, server.Options{CORSOrigins: cfg.Server.CORSOrigins})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("listening", "addr", cfg.Server.Addr, "storage", cfg.Storage.Path, "in_memory", cfg.Storage.InMemory)
	return srv.ListenAndServe(ctx, cfg.Server.Addr, 15*time.Second)
}
