package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/ddn"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe DDN product health endpoints",
	Long: `Check the health endpoints of the configured DDN products in
parallel. Exits non-zero if any product is unreachable or unhealthy,
making it suitable as a pre-flight gate before a test run.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

// probeTarget pairs a product name with its health call.
type probeTarget struct {
	name  string
	check func(ctx context.Context) (*ddn.Response, error)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	client := ddn.NewClient(log, &cfg.Products)

	targets := []probeTarget{
		{"exascaler", client.ExascalerHealth},
		{"ai400x", client.AI400XHealth},
		{"infinia", client.InfiniaStatus},
		{"intelliflash", client.IntelliflashSystemInfo},
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		config.ParseTimeout(cfg.Products.Timeout, 30*time.Second))
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	for _, target := range targets {
		g.Go(func() error {
			start := time.Now()

			if _, err := target.check(gctx); err != nil {
				log.WithError(err).WithField("product", target.name).Error("Probe failed")

				return fmt.Errorf("probing %s: %w", target.name, err)
			}

			log.WithField("product", target.name).
				WithField("duration", time.Since(start).Round(time.Millisecond)).
				Info("Probe ok")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("All products healthy")

	return nil
}
