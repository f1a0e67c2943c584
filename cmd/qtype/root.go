package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
)

var (
	flagConfig   string
	flagLogLevel string
	flagMetrics  bool

	cfg             *config.Config
	stopMetrics     func(context.Context) error
	metricsDisabled = map[string]bool{"serve": true}
)

var rootCmd = &cobra.Command{
	Use:          "qtype",
	Short:        "Answer type prediction over DBpedia",
	SilenceUsage: true,
	Long: `qtype ranks DBpedia ontology types as the expected answer type of a
question. Intermediate artifacts are memoized so every stage can be rerun
on its own.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		level := cfg.Logging.Level
		if flagLogLevel != "" {
			level = flagLogLevel
		}
		logger.Setup(level, cfg.Logging.Format)
		cmd.SetContext(logger.WithAttrs(cmd.Context(), "command", cmd.Name()))

		if flagMetrics && cfg.Metrics.Enabled && !metricsDisabled[cmd.Name()] {
			stop, err := metrics.Serve(cfg.Metrics.Port)
			if err != nil {
				slog.Warn("metrics disabled for this run", "error", err)
			}
			stopMetrics = stop
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if stopMetrics == nil {
			return nil
		}
		if err := stopMetrics(context.Background()); err != nil {
			slog.Warn("metrics server shutdown failed", "error", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "configs/development.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().BoolVar(&flagMetrics, "metrics", true, "expose /metrics while the command runs")
}

// Execute is called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
