package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check the state tree for consistency",
	Long: `Parses the definition and reports duplicate or orphan states, unknown
resolve and hook dependencies, hook patterns matching no state, bad redirect
targets and references to functions that are neither builtin nor declared in
--functions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if len(args) > 0 {
			file = args[0]
		}
		funcs, err := functions(cmd, logging.NewNop())
		if err != nil {
			return err
		}
		if err := runValidate(file, funcs); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "State tree is valid!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(file string, funcs *registry.Registry) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	def, err := compiler.Parse(data)
	if err != nil {
		return err
	}
	treeErr := validator.ValidateTree(def)
	_, compileErr := compiler.Compile(def, funcs)
	return errors.Join(treeErr, compileErr)
}
