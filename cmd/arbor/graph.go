package main

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <tree>",
	Short: "Export the tree as a Mermaid diagram",
	Long:  `Outputs a Mermaid flowchart (graph TD) of the tree. With --run the outcomes of that run are overlaid.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newStack(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close()

		data, err := s.Source.GetTree(args[0])
		if err != nil {
			return err
		}
		def, err := loader.Parse(data)
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			recs, err := s.Sessions.Load(context.Background(), runID)
			if err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			overlay = graph.OverlayFromRecords(recs)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Overlay the outcomes of this run (needs a shared --redis journal)")
}
