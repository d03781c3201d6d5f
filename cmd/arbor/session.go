package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted locations",
	Long:  `List, inspect and remove the locations persisted by 'arbor go' or 'arbor serve'.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		keys, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintln(out, "- "+k)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session>",
	Short: "Print the location of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		loc, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load session '%s': %w", args[0], err)
		}
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(loc)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		var failed int
		for _, key := range args {
			if err := store.Delete(cmd.Context(), key); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", key, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", key)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sessions could not be removed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)

	addStoreFlags(sessionCmd)
}
