/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldlinehq/fieldline/internal/booking"
	"github.com/fieldlinehq/fieldline/internal/recommend"
	"github.com/fieldlinehq/fieldline/internal/schedule"
)

var bookCmd = &cobra.Command{
	Use:   "book <contractor-id> <job-id> <start-rfc3339>",
	Short: "Confirm a recommended slot as an assignment",
	Long:  "Re-validate the slot against the contractor's current schedule and persist the assignment. Fails with a conflict if another booking won the slot first.",
	Args:  cobra.ExactArgs(3),
	RunE:  runBook,
}

func runBook(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	contractorID, jobID := args[0], args[1]
	start, err := time.Parse(time.RFC3339, args[2])
	if err != nil {
		return fmt.Errorf("parse start time %q: %w", args[2], err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	contractor, err := rt.store.ContractorByID(ctx, contractorID)
	if err != nil {
		return err
	}
	job, err := rt.store.JobByID(ctx, jobID)
	if err != nil {
		return err
	}

	slot := schedule.TimeWindow{
		Start: start.UTC(),
		End:   start.UTC().Add(time.Duration(job.DurationMinutes) * time.Minute),
	}

	assignment, err := rt.booking.Confirm(ctx, booking.ConfirmRequest{
		Contractor: *contractor,
		Job:        *job,
		Slot:       slot,
		Calendar:   recommend.CalendarFor(*contractor),
	})
	if err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}

	logger.Info().
		Str("assignment_id", assignment.ID).
		Time("starts_at", assignment.StartsAt).
		Time("ends_at", assignment.EndsAt).
		Msg("assignment created")
	return nil
}
