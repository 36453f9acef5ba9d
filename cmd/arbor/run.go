package main

import (
	"context"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <tree>",
	Short: "Run a tree to completion",
	Long:  `Runs the named tree, streaming the output of command nodes, and exits nonzero when the tree fails.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, color, err := newStack(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		rawVars, _ := cmd.Flags().GetString("vars")
		vars, err := cli.ParseVars(rawVars)
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")
		banner, _ := cmd.Flags().GetBool("banner")

		ctx, stop := cli.SignalContext(context.Background())
		defer stop()

		opts := cli.RunOptions{Tree: args[0], Vars: vars, Verbose: verbose, JSON: jsonMode, Banner: banner}
		if watchMode {
			return cli.RunWatch(ctx, s, opts, cmd.OutOrStdout(), color)
		}
		return cli.Run(ctx, s, opts, cmd.OutOrStdout(), color)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("vars", "", "JSON object overriding the tree variables")
	runCmd.Flags().BoolP("verbose", "v", false, "Print the final state of every node")
	runCmd.Flags().Bool("json", false, "Print the run result as JSON")
	runCmd.Flags().BoolP("watch", "w", false, "Rerun the tree whenever the definitions change")
	runCmd.Flags().Bool("banner", false, "Print the banner before running")
}
