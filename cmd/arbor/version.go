package main

import (
	"fmt"

	"github.com/aretw0/arbor"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of arbor",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arbor version %s\n", arbor.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
