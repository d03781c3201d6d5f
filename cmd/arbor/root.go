package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is a hierarchical state transition engine",
	Long: `Arbor moves a router through a tree of states declared in YAML,
running transition hooks and resolving state data on the way.`,
	SilenceUsage: true,
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
	rootCmd.PersistentFlags().StringP("file", "f", "arbor.yaml", "State tree definition")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().String("functions", "functions.yaml", "Commands exposed as functions (YAML or JSON)")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	asJSON, _ := cmd.Flags().GetBool("log-json")
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), level, asJSON), nil
}

// loadEngine builds an engine with the CLI functions and installs the
// definition named by --file.
func loadEngine(cmd *cobra.Command, opts ...arbor.Option) (*arbor.Engine, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	file, _ := cmd.Flags().GetString("file")
	funcs, err := functions(cmd, logger)
	if err != nil {
		return nil, err
	}

	opts = append([]arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithFunctions(funcs),
	}, opts...)
	eng := arbor.New(opts...)
	if err := eng.LoadFile(file); err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	return eng, nil
}
