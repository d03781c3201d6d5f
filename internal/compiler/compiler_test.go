package compiler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/path"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tree = `
states:
  - name: home
  - name: login
  - name: users
    resolve_policy: eager
    resolve:
      - name: title
        value: Users
  - name: users.detail
    params:
      - {id: id, type: int}
      - {id: tab, type: string, default: info, dynamic: true}
    resolve:
      - name: user
        fn: loadUser
        deps: [$stateParams]
        policy: lazy
    on_enter:
      fn: record
      deps: [user]
    views: [detail]
  - name: admin
    abstract: true
  - name: admin.panel
hooks:
  - on: onBefore
    to: "admin.**"
    redirect: login
  - on: onBefore
    to: users.detail
    when: params.id > 100
    abort: true
  - on: onStart
    to: home
    fn: record
    priority: 5
`

type fixture struct {
	funcs    *registry.Registry
	recorded []any
}

func newFixture() *fixture {
	f := &fixture{funcs: registry.NewRegistry()}
	f.funcs.Register("loadUser", func(_ context.Context, deps inject.Values) (any, error) {
		p := deps["$stateParams"].(map[string]any)
		return map[string]any{"id": p["id"]}, nil
	})
	f.funcs.Register("record", func(_ context.Context, deps inject.Values) (any, error) {
		f.recorded = append(f.recorded, deps["user"])
		return nil, nil
	})
	return f
}

func install(t *testing.T, src string, f *fixture) (*state.Registry, *transition.Service) {
	t.Helper()
	def, err := compiler.Parse([]byte(src))
	require.NoError(t, err)
	prog, err := compiler.Compile(def, f.funcs)
	require.NoError(t, err)

	reg := state.NewRegistry()
	svc := transition.NewService()
	require.NoError(t, prog.Install(reg, svc.Hooks()))
	return reg, svc
}

func run(t *testing.T, reg *state.Registry, svc *transition.Service, to string, p map[string]any) (*transition.Transition, error) {
	t.Helper()
	tr, err := svc.Create(path.BuildPath(reg.Target("", nil, state.Options{})), reg.Target(to, p, state.Options{}))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = tr.Run(ctx).Await(ctx)
	return tr, err
}

func TestCompile_States(t *testing.T) {
	reg, _ := install(t, tree, newFixture())

	detail, err := reg.Get("users.detail")
	require.NoError(t, err)
	assert.Equal(t, "users", detail.Parent.Name)
	require.Len(t, detail.Params, 2)
	assert.Equal(t, "int", detail.Params[0].Type.Name())
	assert.Equal(t, "info", detail.Params[1].Default)
	assert.True(t, detail.Params[1].Dynamic)
	assert.Equal(t, []any{"detail"}, detail.Views)
	assert.Equal(t, domain.PolicyLazy, detail.ResolvePolicy.For("user"))

	users, err := reg.Get("users")
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyEager, users.ResolvePolicy.For("title"))

	admin, err := reg.Get("admin")
	require.NoError(t, err)
	assert.True(t, admin.Abstract)
}

func TestCompile_ResolvesAndCallbacks(t *testing.T) {
	f := newFixture()
	reg, svc := install(t, tree, f)

	tr, err := run(t, reg, svc, "users.detail", map[string]any{"id": 7})
	require.NoError(t, err)

	res := tr.Resolves()
	assert.Equal(t, "Users", res["title"])
	assert.Equal(t, map[string]any{"id": 7}, res["user"])
	assert.Equal(t, []any{map[string]any{"id": 7}}, f.recorded, "on_enter receives the resolved user")
}

func TestCompile_HookActions(t *testing.T) {
	f := newFixture()
	reg, svc := install(t, tree, f)

	_, err := run(t, reg, svc, "admin.panel", nil)
	rej := transition.AsRejection(err)
	require.Equal(t, transition.RejectRedirected, rej.Type)
	assert.Equal(t, "login", rej.Target().Name())

	_, err = run(t, reg, svc, "users.detail", map[string]any{"id": 500})
	assert.True(t, transition.IsRejection(err, transition.RejectAborted))

	_, err = run(t, reg, svc, "users.detail", map[string]any{"id": 5})
	assert.NoError(t, err, "guard is false for small ids")

	_, err = run(t, reg, svc, "home", nil)
	require.NoError(t, err)
	assert.Contains(t, f.recorded, nil, "fn hooks run with their declared deps")
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := compiler.Parse([]byte("states:\n  - name: a\n    abstrct: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abstrct")

	_, err = compiler.Parse([]byte("states: ["))
	assert.Error(t, err)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unnamed state", "states:\n  - abstract: true\n", "missing name"},
		{"bad param type", "states:\n  - name: a\n    params: [{id: x, type: uuid}]\n", "unsupported type"},
		{"bad default", "states:\n  - name: a\n    params: [{id: x, type: int, default: abc}]\n", "not a valid int"},
		{"bad policy", "states:\n  - name: a\n    resolve_policy: soon\n", "unknown resolve policy"},
		{"unknown resolve fn", "states:\n  - name: a\n    resolve: [{name: r, fn: nope}]\n", "function not found: nope"},
		{"unknown callback fn", "states:\n  - name: a\n    on_exit: {fn: nope}\n", "function not found: nope"},
		{"unknown event", "hooks:\n  - on: onLaunch\n    abort: true\n", "unknown event"},
		{"no action", "hooks:\n  - on: onStart\n", "exactly one of"},
		{"two actions", "hooks:\n  - on: onStart\n    abort: true\n    redirect: a\n", "exactly one of"},
		{"bad expression", "hooks:\n  - on: onStart\n    when: 'params.id >'\n    abort: true\n", "when:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := compiler.Parse([]byte(tt.src))
			require.NoError(t, err)
			_, err = compiler.Compile(def, newFixture().funcs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var defErr *compiler.DefinitionError
			assert.True(t, errors.As(err, &defErr))
		})
	}
}

func TestInstall_Errors(t *testing.T) {
	f := newFixture()

	def, err := compiler.Parse([]byte("states:\n  - name: a.b\n"))
	require.NoError(t, err)
	prog, err := compiler.Compile(def, f.funcs)
	require.NoError(t, err)
	err = prog.Install(state.NewRegistry(), transition.NewHookRegistry())
	assert.ErrorIs(t, err, domain.ErrStateNotFound, "parent must be declared first")

	def, err = compiler.Parse([]byte("hooks:\n  - on: onBefore\n    redirect: missing\n"))
	require.NoError(t, err)
	prog, err = compiler.Compile(def, f.funcs)
	require.NoError(t, err)
	err = prog.Install(state.NewRegistry(), transition.NewHookRegistry())
	assert.ErrorContains(t, err, `redirect target "missing"`)
}

func TestLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(file, []byte(tree), 0o644))

	prog, err := compiler.LoadFile(file, newFixture().funcs)
	require.NoError(t, err)
	assert.Len(t, prog.Declarations(), 6)
	assert.Equal(t, 3, prog.HookCount())

	_, err = compiler.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestProgram_Redirects(t *testing.T) {
	f := newFixture()
	def, err := compiler.Parse([]byte(tree))
	require.NoError(t, err)
	prog, err := compiler.Compile(def, f.funcs)
	require.NoError(t, err)

	reg := state.NewRegistry()
	require.NoError(t, prog.Install(reg, transition.NewHookRegistry()))

	assert.Equal(t, map[string]string{"admin": "login", "admin.panel": "login"}, prog.Redirects(reg))
	assert.Equal(t, 3, prog.HookCount())
}
