package main

import (
	"context"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Exposes tree runs, run history, graphs, output streams (SSE) and prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newStack(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close()

		port, _ := cmd.Flags().GetString("port")
		watch, _ := cmd.Flags().GetBool("watch")

		ctx, stop := cli.SignalContext(context.Background())
		defer stop()

		return cli.Serve(ctx, s, cli.ServeOptions{Addr: ":" + port, Watch: watch})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Revalidate trees when the definitions change")
}
