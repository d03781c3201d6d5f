package main

import (
	"fmt"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the state tree visualization",
	Long: `Loads the definition and outputs a Mermaid diagram (graph TD) of the
state tree, with redirect hooks drawn as dotted edges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		current, _ := cmd.Flags().GetString("current")

		funcs, err := functions(cmd, logging.NewNop())
		if err != nil {
			return err
		}
		prog, err := compiler.LoadFile(file, funcs)
		if err != nil {
			return err
		}
		states := state.NewRegistry()
		if err := prog.Install(states, transition.NewHookRegistry()); err != nil {
			return err
		}

		overlay := &graph.Overlay{Current: current, Redirects: prog.Redirects(states)}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(states.List(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("current", "", "Highlight this state and its ancestors")
}
