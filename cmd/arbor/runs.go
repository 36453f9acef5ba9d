package main

import (
	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run journal",
	Long:  `List, show and delete journaled runs. Runs outlive the process only with --redis.`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List journaled runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newStack(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		return cli.ListRuns(cmd.Context(), s, cmd.OutOrStdout())
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the outcome records of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newStack(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		return cli.ShowRun(cmd.Context(), s, args[0], cmd.OutOrStdout())
	},
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Delete a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newStack(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()
		return cli.DeleteRun(cmd.Context(), s, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd, runsShowCmd, runsRmCmd)
}
