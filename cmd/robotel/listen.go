package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ddn-qa/robotel/pkg/api"
	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/jenkins"
	"github.com/ddn-qa/robotel/pkg/listener"
	"github.com/ddn-qa/robotel/pkg/redact"
	"github.com/ddn-qa/robotel/pkg/store"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Start the event-ingest server",
	Long: `Start the HTTP server that receives Robot Framework lifecycle events
and forwards test failures and build summaries to MongoDB. The server
runs for the duration of one test run and flushes the build summary on
shutdown.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Persistence is optional: without a MongoDB URI the listener still
	// tracks counters and the run proceeds, matching CI agents that only
	// want local execution.
	var st store.Store

	if cfg.Mongo.URI != "" {
		st = store.NewStore(log, &cfg.Mongo)

		startCtx, startCancel := context.WithTimeout(ctx,
			config.ParseTimeout(cfg.Mongo.ConnectTimeout, 10*time.Second))
		defer startCancel()

		if err := st.Start(startCtx); err != nil {
			log.WithError(err).Warn("MongoDB unavailable, telemetry will not be persisted")

			st = nil
		}
	} else {
		log.Warn("MONGODB_URI not set, telemetry will not be persisted")
	}

	var ci *jenkins.Client
	if cfg.CI.BuildURL != "" {
		ci = jenkins.New(log, &cfg.CI)
	}

	var redactor redact.Redactor = redact.Noop{}
	if cfg.Redaction.Enabled {
		redactor = redact.NewHTTPRedactor(log, &cfg.Redaction)
	}

	l := listener.New(log, cfg, st, ci, redactor)

	log.WithField("build_id", cfg.CI.BuildID()).
		WithField("run_id", l.RunID()).
		Info("Listener session starting")

	srv := api.NewServer(log, cfg, l)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting ingest server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down ingest server")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping ingest server: %w", err)
	}

	return nil
}
