/*
Package arbor is a hierarchical state transition engine for Go services.

States form a tree: a state named "users.detail" is a child of "users", and
entering it means entering every ancestor that is not already active. Moving
from one location in the tree to another is a transition. A transition works
out which states exit, which are retained and which enter, runs the hooks
registered for each of those phases, resolves the data the entered states
declare, and either succeeds or is rejected (superseded, aborted, redirected,
ignored or failed).

# Concept

The Engine wraps three pieces:

  - a state registry (pkg/state) holding the tree,
  - a transition service (pkg/transition) holding the global hooks,
  - a router (pkg/router) owning the current location and following redirects.

Hooks and resolves are plain functions with named dependencies, injected from
the resolve context of the transition (pkg/inject, pkg/resolve). Locations can
be persisted through a LocationStore (memory, file or Redis adapters) so a
session survives restarts.

# Usage

	eng := arbor.New(arbor.WithStore(memory.NewStore()))

	_ = eng.Register(
		state.Declaration{Name: "home"},
		state.Declaration{Name: "users", Resolve: []state.ResolveDecl{
			state.Resolve("users", loadUsers),
		}},
		state.Declaration{Name: "users.detail", Params: params.Schema{
			params.New("id", params.Int()),
		}},
	)

	eng.Hooks().OnBefore(transition.Criteria{To: transition.Glob("users.**")},
		inject.Fn(requireLogin, "$transition$"))

	t, err := eng.Go(ctx, "users.detail", map[string]any{"id": 42})

State trees can also be declared in YAML and loaded with LoadFile, with
function names looked up in the engine's function registry.
*/
package arbor
