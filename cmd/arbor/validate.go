package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [tree...]",
	Short: "Build trees and report structural errors",
	Long:  `Builds every named tree (all trees when none are named) without running it and reports unknown kinds, conflicting behaviors and structural errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newStack(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := cli.Validate(s, args, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
