/*
Package router runs transitions against a state tree and keeps track of where it is.

A Router starts at the implicit root state. Each call to Go builds a transition
from the current location, marks it as the active one and waits for its outcome:

	r := router.New(registry)
	t, err := r.Go(ctx, "users.detail", map[string]any{"id": 42}, state.Options{})

Starting a new transition supersedes one still in flight. Hooks that redirect
are followed transparently, and successful transitions are persisted through a
session.Manager when one is configured with WithSessions.
*/
package router
