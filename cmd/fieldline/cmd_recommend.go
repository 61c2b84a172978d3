/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <job-id>",
	Short: "Rank contractors for a job",
	Long:  "Evaluate all active contractors against the job's service window and print the ranked recommendation list as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

func runRecommend(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)
	rt.serveMetrics()

	result, err := rt.service.RecommendForJob(ctx, args[0])
	if err != nil {
		return fmt.Errorf("recommend for job %s: %w", args[0], err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

var exportCmd = &cobra.Command{
	Use:   "export <contractor-id>",
	Short: "Export a contractor's assignments as iCal",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var exportDays int

func init() {
	exportCmd.Flags().IntVar(&exportDays, "days", 14, "number of days to export, starting today")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	start := time.Now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, exportDays)

	result, err := rt.exporter.ExportToICal(ctx, args[0], start, end)
	if err != nil {
		return err
	}

	if err := os.WriteFile(result.Filename, result.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", result.Filename, err)
	}
	logger.Info().Str("file", result.Filename).Msg("schedule exported")
	return nil
}
