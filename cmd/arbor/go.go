package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var goCmd = &cobra.Command{
	Use:   "go <state>",
	Short: "Transition a persisted session to a state",
	Long: `Restores the session's last location from the store directory, runs a
transition to <state> and persists where it ended up. Param values are read as
YAML scalars, so --param id=3 is an int and --param q=abc a string.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawParams, _ := cmd.Flags().GetStringArray("param")
		reload, _ := cmd.Flags().GetBool("reload")
		inherit, _ := cmd.Flags().GetBool("inherit")
		key, _ := cmd.Flags().GetString("session")

		params, err := parseParams(rawParams)
		if err != nil {
			return err
		}

		h, err := resolveStore(cmd)
		if err != nil {
			return err
		}
		defer h.close()

		eng, err := loadEngine(cmd,
			arbor.WithStore(h.store),
			arbor.WithLocker(h.locker),
			arbor.WithSessionKey(key),
		)
		if err != nil {
			return err
		}
		return runGo(cmd.Context(), cmd.OutOrStdout(), eng, args[0], params, state.Options{Reload: reload, Inherit: inherit})
	},
}

func init() {
	rootCmd.AddCommand(goCmd)
	goCmd.Flags().StringArrayP("param", "p", nil, "Param as key=value (repeatable)")
	goCmd.Flags().Bool("reload", false, "Re-enter every state of the target")
	goCmd.Flags().Bool("inherit", false, "Keep current param values the target does not set")
	addStoreFlags(goCmd)
	goCmd.Flags().String("session", "default", "Session key")
}

func runGo(ctx context.Context, out io.Writer, eng *arbor.Engine, to string, params map[string]any, opts state.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := eng.Restore(ctx); err != nil && !errors.Is(err, domain.ErrLocationNotFound) {
		return fmt.Errorf("restore session: %w", err)
	}

	t, err := eng.Transition(ctx, to, params, opts)
	if err != nil {
		return err
	}
	return yaml.NewEncoder(out).Encode(newResult(t, eng.Location()))
}

type result struct {
	Status   string         `yaml:"status"`
	State    string         `yaml:"state"`
	Params   map[string]any `yaml:"params,omitempty"`
	Exiting  []string       `yaml:"exiting,omitempty"`
	Retained []string       `yaml:"retained,omitempty"`
	Entering []string       `yaml:"entering,omitempty"`
}

func newResult(t *transition.Transition, loc *domain.Location) result {
	r := result{Status: "success", State: t.To().Name, Params: t.Params()}
	if !t.Success() {
		r.Status = "ignored"
		if loc != nil {
			r.State, r.Params = loc.State, loc.Params
		}
		return r
	}
	r.Exiting = names(t.Exiting())
	r.Retained = names(t.Retained())
	r.Entering = names(t.Entering())
	return r
}

func names(states []*state.State) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		if s.Name != "" {
			out = append(out, s.Name)
		}
	}
	return out
}

// parseParams turns key=value pairs into a param map, decoding each value as a YAML scalar.
func parseParams(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid param %q: expected key=value", pair)
		}
		var decoded any
		if err := yaml.Unmarshal([]byte(v), &decoded); err != nil || decoded == nil {
			decoded = v
		}
		out[k] = decoded
	}
	return out, nil
}
