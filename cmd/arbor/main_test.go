package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const definition = `
states:
  - name: home
    on_enter: {fn: log, deps: [$state$]}
  - name: users
    resolve:
      - {name: loadedAt, fn: now}
  - name: users.detail
    params:
      - {id: id, type: int}
  - name: admin
    abstract: true
  - name: admin.panel
hooks:
  - on: onBefore
    to: "admin.**"
    redirect: home
`

func writeDefinition(t *testing.T, src string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"id=3", "q=abc", "on=true", "empty=", "ratio=0.5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 3, "q": "abc", "on": true, "empty": "", "ratio": 0.5}, got)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=3"})
	assert.Error(t, err)
}

func TestRunValidate(t *testing.T) {
	funcs := builtins(logging.NewNop())
	require.NoError(t, runValidate(writeDefinition(t, definition), funcs))

	bad := writeDefinition(t, `
states:
  - name: a.b
hooks:
  - on: onStart
    fn: missing
`)
	err := runValidate(bad, funcs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent 'a' must be declared before it")
	assert.Contains(t, err.Error(), "missing")
}

func TestRunGo_PersistsAcrossEngines(t *testing.T) {
	ctx := context.Background()
	def := writeDefinition(t, definition)
	store := file.NewStore(t.TempDir())

	newEngine := func() *arbor.Engine {
		eng := arbor.New(
			arbor.WithStore(store),
			arbor.WithSessionKey("cli"),
			arbor.WithFunctions(builtins(logging.NewNop())),
		)
		require.NoError(t, eng.LoadFile(def))
		return eng
	}

	var out bytes.Buffer
	require.NoError(t, runGo(ctx, &out, newEngine(), "users.detail", map[string]any{"id": 3}, state.Options{}))

	var first result
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &first))
	assert.Equal(t, "success", first.Status)
	assert.Equal(t, []string{"users", "users.detail"}, first.Entering)

	out.Reset()
	require.NoError(t, runGo(ctx, &out, newEngine(), "users", nil, state.Options{}))
	var second result
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &second))
	assert.Equal(t, "users", second.State)
	assert.Equal(t, []string{"users.detail"}, second.Exiting)
	assert.Equal(t, []string{"users"}, second.Retained)

	loc, err := store.Load(ctx, "cli")
	require.NoError(t, err)
	assert.Equal(t, "users", loc.State)
}

func TestRunGo_Redirect(t *testing.T) {
	eng := arbor.New(arbor.WithFunctions(builtins(logging.NewNop())))
	require.NoError(t, eng.LoadFile(writeDefinition(t, definition)))

	var out bytes.Buffer
	require.NoError(t, runGo(context.Background(), &out, eng, "admin.panel", nil, state.Options{}))
	assert.Contains(t, out.String(), "state: home")
}

func TestFunctions_FromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "functions.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("functions:\n  - name: lookup\n    command: ./lookup.sh\n"), 0o644))

	cmd := &cobra.Command{}
	cmd.Flags().String("functions", cfg, "")

	funcs, err := functions(cmd, logging.NewNop())
	require.NoError(t, err)
	_, ok := funcs.Lookup("lookup")
	assert.True(t, ok)
	_, ok = funcs.Lookup("now")
	assert.True(t, ok)
}

func TestCommands(t *testing.T) {
	def := writeDefinition(t, definition)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "arbor version "+arbor.Version+"\n", out)

	out, err = execute(t, "validate", def)
	require.NoError(t, err)
	assert.Contains(t, out, "State tree is valid!")

	out, err = execute(t, "graph", "-f", def, "--current", "users.detail")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "s_admin_panel -. redirect .-> s_home")

	storeDir := t.TempDir()
	out, err = execute(t, "go", "users.detail", "-f", def, "-p", "id=7", "--store-dir", storeDir, "--session", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "state: users.detail")

	out, err = execute(t, "session", "ls", "--store-dir", storeDir)
	require.NoError(t, err)
	assert.Contains(t, out, "- s1")

	out, err = execute(t, "session", "inspect", "s1", "--store-dir", storeDir)
	require.NoError(t, err)
	assert.Contains(t, out, "state: users.detail")

	out, err = execute(t, "session", "rm", "s1", "--store-dir", storeDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 's1'")
}
