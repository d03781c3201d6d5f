package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunLocationStoreContract runs a suite of tests to verify that a LocationStore
// implementation adheres to the defined interface contract.
func RunLocationStoreContract(t *testing.T, store LocationStore) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		loc := domain.NewLocation("users.detail", map[string]any{"id": "42", "tab": "info"})
		loc.TransitionID = 7

		err := store.Save(ctx, key, loc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "users.detail", loaded.State)
		assert.Equal(t, "42", loaded.Params["id"])
		assert.EqualValues(t, 7, loaded.TransitionID)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		loc := domain.NewLocation("users", map[string]any{"page": "1"})
		require.NoError(t, store.Save(ctx, key, loc))
		loc.Params["page"] = "2"

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "1", loaded.Params["page"], "mutating the saved value must not change the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrLocationNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, key, domain.NewLocation("users", nil))
		require.NoError(t, err)

		err = store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrLocationNotFound, "Load after Delete should return ErrLocationNotFound")
	})

	t.Run("List", func(t *testing.T) {
		k1 := key + "-1"
		k2 := key + "-2"
		_ = store.Save(ctx, k1, domain.NewLocation("a", nil))
		_ = store.Save(ctx, k2, domain.NewLocation("b", nil))

		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
