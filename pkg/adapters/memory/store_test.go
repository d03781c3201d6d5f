package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunLocationStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	loc := domain.NewLocation("users.detail", map[string]any{"id": 1})
	require.NoError(t, store.Save(ctx, "tab", loc))

	// Neither the saved pointer nor a loaded copy reaches the stored value.
	loc.Params["id"] = 2
	got, err := store.Load(ctx, "tab")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Params["id"])

	got.Params["id"] = 3
	again, err := store.Load(ctx, "tab")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Params["id"])
}

func TestMemoryStore_ListSorted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, k := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Save(ctx, k, domain.NewLocation("home", nil)))
	}

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, keys)
}
