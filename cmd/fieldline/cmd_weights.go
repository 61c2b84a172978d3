/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldlinehq/fieldline/internal/scoring"
)

var validateWeightsCmd = &cobra.Command{
	Use:   "validate-weights <path>",
	Short: "Validate a scoring weights file",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateWeights,
}

func runValidateWeights(cmd *cobra.Command, args []string) error {
	config, err := scoring.LoadWeightsFile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("weights config %q is valid\n", config.Version)
	fmt.Printf("  availability=%.2f rating=%.2f distance=%.2f\n",
		config.Weights.Availability, config.Weights.Rating, config.Weights.Distance)
	fmt.Printf("  tie breakers: %v\n", config.TieBreakers)
	fmt.Printf("  rotation: enabled=%t boost=%.1f threshold=%.2f\n",
		config.Rotation.Enabled, config.Rotation.Boost, config.Rotation.UnderUtilizationThreshold)
	return nil
}
