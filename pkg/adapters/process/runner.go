package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/registry"
)

// EnvPrefix prefixes the environment variable of every dependency.
const EnvPrefix = "ARBOR_DEP_"

var envUnsafe = regexp.MustCompile(`[^A-Z0-9_]+`)

// Runner turns allow-listed local commands into functions that resolves and
// hooks can call. Only registered commands ever run.
type Runner struct {
	procs   map[string]Config
	baseDir string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithConfigs populates the allow-list from loaded configs.
func WithConfigs(configs map[string]Config) RunnerOption {
	return func(r *Runner) {
		for name, c := range configs {
			c.Name = name
			r.procs[name] = c
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{procs: make(map[string]Config)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.procs[name] = Config{Name: name, Command: command, Args: args}
}

// Names returns the registered names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.procs))
	for n := range r.procs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterInto adds every registered command to funcs under its name.
func (r *Runner) RegisterInto(funcs *registry.Registry) {
	for _, name := range r.Names() {
		funcs.Register(name, r.Function(name))
	}
}

// Function returns the function running the named command.
//
// Dependencies are passed twice: all of them as a JSON object on stdin, and
// each as an ARBOR_DEP_<NAME> environment variable. Args are never built from
// dependency values. Output that parses as a JSON object or array is returned
// decoded, anything else as a trimmed string. A failing command is an error
// carrying its stderr.
func (r *Runner) Function(name string) registry.Function {
	return func(ctx context.Context, deps inject.Values) (any, error) {
		proc, ok := r.procs[name]
		if !ok {
			return nil, fmt.Errorf("process function not registered: %s", name)
		}

		input, err := json.Marshal(encodable(deps))
		if err != nil {
			return nil, fmt.Errorf("encode dependencies of %s: %w", name, err)
		}

		cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
		cmd.Dir = r.baseDir
		cmd.Stdin = bytes.NewReader(input)
		cmd.Env = append(cmd.Environ(), environment(proc.Environment, deps)...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("process %s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
		}
		return decodeOutput(stdout.String()), nil
	}
}

// encodable drops values JSON cannot represent, such as the transition itself.
func encodable(deps inject.Values) map[string]any {
	out := make(map[string]any, len(deps))
	for k, v := range deps {
		if _, err := json.Marshal(v); err == nil {
			out[k] = v
		}
	}
	return out
}

func environment(static map[string]string, deps inject.Values) []string {
	env := make([]string, 0, len(static)+len(deps))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	for k, v := range deps {
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			val = string(raw)
		}
		env = append(env, EnvPrefix+envName(k)+"="+val)
	}
	return env
}

// envName upper-cases name and replaces anything outside [A-Z0-9_], so
// "$stateParams" becomes "STATEPARAMS".
func envName(name string) string {
	return strings.Trim(envUnsafe.ReplaceAllString(strings.ToUpper(name), "_"), "_")
}

func decodeOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return trimmed
}
