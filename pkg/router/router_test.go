package router_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/router"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *state.Registry {
	t.Helper()
	reg := state.NewRegistry()
	for _, d := range []state.Declaration{
		{Name: "home"},
		{Name: "users"},
		{Name: "users.detail", Params: params.Schema{params.New("id", params.Int())}},
		{Name: "login"},
		{Name: "admin", Abstract: true},
	} {
		_, err := reg.Register(d)
		require.NoError(t, err)
	}
	return reg
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func hook(f func(context.Context, inject.Values) (any, error), deps ...string) inject.Injectable {
	return inject.Fn(f, deps...)
}

func TestRouter_StartsAtRoot(t *testing.T) {
	r := router.New(newRegistry(t))
	assert.Equal(t, "", r.State().Name)
	assert.Nil(t, r.Current())
	assert.Nil(t, r.Location())
	assert.NotEmpty(t, r.ID())
	assert.Equal(t, r.ID(), r.Key())
}

func TestRouter_Go(t *testing.T) {
	r := router.New(newRegistry(t))
	ctx := testCtx(t)

	tr, err := r.Go(ctx, "users.detail", map[string]any{"id": 5}, state.Options{})
	require.NoError(t, err)
	assert.True(t, tr.Success())
	assert.Same(t, tr, r.Current())
	assert.Equal(t, "users.detail", r.State().Name)
	assert.Equal(t, 5, r.Params()["id"])

	loc := r.Location()
	require.NotNil(t, loc)
	assert.Equal(t, "users.detail", loc.State)
	assert.Equal(t, tr.ID(), loc.TransitionID)

	// The next transition starts from the adopted path.
	next, err := r.Go(ctx, "home", nil, state.Options{})
	require.NoError(t, err)
	assert.Equal(t, "users.detail", next.From().Name)
	assert.Equal(t, []string{"users.detail", "users"}, names(next.Exiting()))
}

func TestRouter_Go_Errors(t *testing.T) {
	r := router.New(newRegistry(t))
	ctx := testCtx(t)

	_, err := r.Go(ctx, "nowhere", nil, state.Options{})
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	_, err = r.Go(ctx, "admin", nil, state.Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
	assert.Equal(t, "", r.State().Name, "failed transitions leave the location unchanged")

	_, err = r.Go(ctx, "users.detail", map[string]any{"id": "abc"}, state.Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestRouter_Go_IgnoredIsNotAnError(t *testing.T) {
	r := router.New(newRegistry(t))
	ctx := testCtx(t)

	_, err := r.Go(ctx, "home", nil, state.Options{})
	require.NoError(t, err)

	tr, err := r.Go(ctx, "home", nil, state.Options{})
	require.NoError(t, err)
	assert.False(t, tr.Success())
	assert.True(t, tr.Ignored())
}

func TestRouter_Go_FollowsRedirects(t *testing.T) {
	reg := newRegistry(t)
	r := router.New(reg)
	login := reg.Target("login", nil, state.Options{})
	r.Service().Hooks().OnStart(transition.Criteria{To: transition.Glob("users.**")}, hook(func(context.Context, inject.Values) (any, error) {
		return login, nil
	}))

	tr, err := r.Go(testCtx(t), "users.detail", map[string]any{"id": 1}, state.Options{})
	require.NoError(t, err)
	assert.Equal(t, "login", tr.To().Name)
	require.NotNil(t, tr.Previous())
	assert.Equal(t, "users.detail", tr.Previous().To().Name)
	assert.Equal(t, "login", r.State().Name)
}

func TestRouter_Go_TooManyRedirects(t *testing.T) {
	reg := newRegistry(t)
	r := router.New(reg, router.WithMaxRedirects(3))
	// home and login keep redirecting to each other.
	r.Service().Hooks().OnStart(transition.Criteria{To: transition.Glob("home")}, hook(func(context.Context, inject.Values) (any, error) {
		return reg.Target("login", nil, state.Options{}), nil
	}))
	r.Service().Hooks().OnStart(transition.Criteria{To: transition.Glob("login")}, hook(func(context.Context, inject.Values) (any, error) {
		return reg.Target("home", nil, state.Options{}), nil
	}))

	_, err := r.Go(testCtx(t), "home", nil, state.Options{})
	assert.ErrorIs(t, err, domain.ErrTooManyRedirects)
}

func TestRouter_Go_Aborted(t *testing.T) {
	r := router.New(newRegistry(t))
	r.Service().Hooks().OnBefore(transition.Criteria{}, hook(func(context.Context, inject.Values) (any, error) {
		return false, nil
	}))

	_, err := r.Go(testCtx(t), "home", nil, state.Options{})
	assert.True(t, transition.IsRejection(err, transition.RejectAborted))
	assert.Equal(t, "", r.State().Name)
}

func TestRouter_Go_Supersedes(t *testing.T) {
	r := router.New(newRegistry(t))
	ctx := testCtx(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	r.Service().Hooks().OnEnter(transition.Criteria{Entering: transition.Glob("users")}, hook(func(context.Context, inject.Values) (any, error) {
		close(entered)
		<-release
		return nil, nil
	}))

	errs := make(chan error, 1)
	go func() {
		_, err := r.Go(ctx, "users", nil, state.Options{})
		errs <- err
	}()

	<-entered
	_, err := r.Go(ctx, "home", nil, state.Options{})
	require.NoError(t, err)
	close(release)

	err = <-errs
	assert.True(t, transition.IsRejection(err, transition.RejectSuperseded), "got %v", err)
	assert.Equal(t, "home", r.State().Name)
}

func TestRouter_PersistsAndRestores(t *testing.T) {
	store := memory.NewStore()
	reg := newRegistry(t)
	ctx := testCtx(t)

	first := router.New(reg, router.WithSessions(session.NewManager(store), "web"))
	_, err := first.Go(ctx, "users.detail", map[string]any{"id": 9}, state.Options{})
	require.NoError(t, err)

	loc, err := store.Load(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "users.detail", loc.State)
	assert.Equal(t, 9, loc.Params["id"])

	second := router.New(reg, router.WithSessions(session.NewManager(store), "web"))
	tr, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, tr.Success())
	assert.Equal(t, "users.detail", second.State().Name)
}

func TestRouter_Restore_Errors(t *testing.T) {
	ctx := testCtx(t)

	_, err := router.New(newRegistry(t)).Restore(ctx)
	assert.ErrorIs(t, err, router.ErrNoSessions)

	r := router.New(newRegistry(t), router.WithSessions(session.NewManager(memory.NewStore()), "empty"))
	_, err = r.Restore(ctx)
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)
}

type failingStore struct{ *memory.Store }

func (failingStore) Save(context.Context, string, *domain.Location) error {
	return errors.New("disk full")
}

func TestRouter_PersistFailure(t *testing.T) {
	r := router.New(newRegistry(t), router.WithSessions(session.NewManager(failingStore{memory.NewStore()}), "k"))

	tr, err := r.Go(testCtx(t), "home", nil, state.Options{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
	assert.True(t, tr.Success())
	assert.Equal(t, "home", r.State().Name)
}

func names(states []*state.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.Name
	}
	return out
}
