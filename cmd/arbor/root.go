package main

import (
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "arbor",
	Short:         "Arbor runs behavior trees",
	Long:          `Arbor loads behavior trees from *.tree.yaml files and runs them, locally, over HTTP or as MCP tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the *.tree.yaml files")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL for the run journal and tree locks (default: in memory)")
	rootCmd.PersistentFlags().String("commands", cli.DefaultCommandsFile, "Allow-listed commands file, relative to --dir")
	rootCmd.PersistentFlags().Bool("unsafe-inline", false, "Allow command nodes to run arbitrary executables")
	rootCmd.PersistentFlags().String("color", string(tui.ColorAuto), "Color output: auto, always, never")
}

func stackOptions(cmd *cobra.Command) cli.Options {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	level, _ := flags.GetString("log-level")
	redisURL, _ := flags.GetString("redis")
	commands, _ := flags.GetString("commands")
	inline, _ := flags.GetBool("unsafe-inline")
	color, _ := flags.GetString("color")
	return cli.Options{
		Dir:          dir,
		LogLevel:     level,
		RedisURL:     redisURL,
		CommandsPath: commands,
		UnsafeInline: inline,
		Color:        color,
	}
}

func newStack(cmd *cobra.Command, metrics bool) (*cli.Stack, tui.ColorMode, error) {
	opts := stackOptions(cmd)
	opts.Metrics = metrics
	color, err := tui.ParseColorMode(opts.Color)
	if err != nil {
		return nil, "", err
	}
	s, err := cli.NewStack(opts)
	if err != nil {
		return nil, "", err
	}
	return s, color, nil
}
