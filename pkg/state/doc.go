/*
Package state holds the state tree: declarations, the registry of registered states,
glob matching over dotted state names, and TargetState, the request to move to a
state with a set of params.

	reg := state.NewRegistry()
	reg.Register(state.Declaration{Name: "users", Params: params.Schema{params.New("page", params.Int()).WithDefault(1)}})
	reg.Register(state.Declaration{Name: "users.detail", Params: params.Schema{params.New("id", params.Int())}})

	target := reg.Target("users.detail", map[string]any{"id": 7}, state.Options{})
*/
package state
