/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fieldlinehq/fieldline/internal/config"
	"github.com/fieldlinehq/fieldline/internal/logging"
	"github.com/fieldlinehq/fieldline/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "fieldline",
	Short:   "Fieldline - contractor scheduling and recommendation engine",
	Long:    "Fieldline matches field-service jobs to contractors, generating feasible appointment slots and a ranked recommendation list from working hours, bookings, travel, and fatigue constraints.",
	Version: version.String(),
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(validateWeightsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	for _, warning := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warning)
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return contextWithSignals(context.Background())
}
