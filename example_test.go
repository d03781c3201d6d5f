package arbor_test

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/state"
)

// ExampleEngine_Go moves through a small tree and prints which states exit and enter.
func ExampleEngine_Go() {
	eng := arbor.New()
	_ = eng.Register(
		state.Declaration{Name: "inbox"},
		state.Declaration{Name: "inbox.message", Params: params.Schema{params.New("id", params.Int())},
			Resolve: []state.ResolveDecl{
				state.Resolve("subject", func(_ context.Context, v inject.Values) (any, error) {
					p, _ := inject.Get[map[string]any](v, "$stateParams")
					return fmt.Sprintf("message #%v", p["id"]), nil
				}, "$stateParams"),
			}},
		state.Declaration{Name: "settings"},
	)

	ctx := context.Background()
	t, _ := eng.Go(ctx, "inbox.message", map[string]any{"id": 1})
	fmt.Println("entered:", t.Entering(), t.Resolves()["subject"])

	t, _ = eng.Go(ctx, "settings", nil)
	fmt.Println("exited:", t.Exiting())

	// Output:
	// entered: [inbox inbox.message] message #1
	// exited: [inbox.message inbox]
}
