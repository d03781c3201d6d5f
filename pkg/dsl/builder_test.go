package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, inject.Values) (any, error) { return nil, nil }

func names(decls []state.Declaration) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.Name
	}
	return out
}

func TestBuilder_OrdersParentsFirst(t *testing.T) {
	b := New()
	b.State("users.detail.edit")
	b.State("users.detail")
	b.State("settings")
	b.State("users")
	b.State("profile").Parent("users.detail")

	assert.Equal(t,
		[]string{"settings", "users", "users.detail", "users.detail.edit", "profile"},
		names(b.Build()))
}

func TestBuilder_SameStateReturnsSameBuilder(t *testing.T) {
	b := New()
	b.State("home").Data("title", "Home")
	b.State("home").Data("icon", "house")

	decls := b.Build()
	require.Len(t, decls, 1)
	assert.Equal(t, map[string]any{"title": "Home", "icon": "house"}, decls[0].Data)
}

func TestStateBuilder_Declaration(t *testing.T) {
	decl := New().State("users.detail").
		Param("id", params.Int()).
		OptionalParam("tab", params.String(), "info", true).
		Resolve("user", noop, "$stateParams").
		Value("title", "User").
		Policy(domain.PolicyEager).
		ResolvePolicy("title", domain.PolicyJIT).
		View("detail").
		OnEnter(noop, "user").
		OnExit(noop).
		Build()

	require.Len(t, decl.Params, 2)
	assert.Equal(t, "id", decl.Params[0].ID)
	assert.Equal(t, "info", decl.Params[1].Default)
	assert.True(t, decl.Params[1].Dynamic)

	require.Len(t, decl.Resolve, 2)
	assert.Equal(t, []string{"$stateParams"}, decl.Resolve[0].Fn.Deps)
	assert.Equal(t, domain.PolicyEager, decl.ResolvePolicy.For("user"))
	assert.Equal(t, domain.PolicyJIT, decl.ResolvePolicy.For("title"))

	assert.Equal(t, []any{"detail"}, decl.Views)
	assert.Equal(t, []string{"user"}, decl.OnEnter.Deps)
	assert.NotNil(t, decl.OnExit.Fn)
	assert.Nil(t, decl.OnRetain.Fn)
}

func TestBuilder_Install(t *testing.T) {
	b := New()
	b.State("admin.panel")
	b.State("admin").Abstract()

	reg := state.NewRegistry()
	require.NoError(t, b.Install(reg))

	panel, err := reg.Get("admin.panel")
	require.NoError(t, err)
	assert.True(t, panel.Parent.Abstract)

	assert.Error(t, b.Install(reg), "installing twice registers duplicates")
}
