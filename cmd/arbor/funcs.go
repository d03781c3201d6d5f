package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/spf13/cobra"
)

// functions returns the builtins plus the commands declared in the file named
// by --functions. Commands run from the directory of that file.
func functions(cmd *cobra.Command, logger *slog.Logger) (*registry.Registry, error) {
	funcs := builtins(logger)
	path, _ := cmd.Flags().GetString("functions")
	if path == "" {
		return funcs, nil
	}
	configs, err := process.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(process.WithConfigs(configs), process.WithBaseDir(filepath.Dir(path)))
	runner.RegisterInto(funcs)
	if len(configs) > 0 {
		logger.Debug("Registered process functions", "file", path, "names", fmt.Sprint(runner.Names()))
	}
	return funcs, nil
}

// builtins returns the functions definitions can reference from the CLI.
//
//   - log:  logs its dependencies and returns nothing
//   - echo: returns its dependencies as a map
//   - now:  returns the current UTC time in RFC 3339
func builtins(logger *slog.Logger) *registry.Registry {
	r := registry.NewRegistry()
	r.Register("log", func(ctx context.Context, deps inject.Values) (any, error) {
		args := make([]any, 0, 2*len(deps))
		for _, name := range sortedNames(deps) {
			args = append(args, name, deps[name])
		}
		logger.InfoContext(ctx, "log", args...)
		return nil, nil
	})
	r.Register("echo", func(_ context.Context, deps inject.Values) (any, error) {
		out := make(map[string]any, len(deps))
		for k, v := range deps {
			out[k] = v
		}
		return out, nil
	})
	r.Register("now", func(context.Context, inject.Values) (any, error) {
		return time.Now().UTC().Format(time.RFC3339), nil
	})
	return r
}

func sortedNames(deps inject.Values) []string {
	names := make([]string, 0, len(deps))
	for k := range deps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
