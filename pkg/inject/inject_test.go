package inject

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_PicksDeclaredDeps(t *testing.T) {
	var seen Values
	fn := Fn(func(ctx context.Context, deps Values) (any, error) {
		seen = deps
		return deps["a"].(int) + deps["b"].(int), nil
	}, "a", "b")

	got, err := Invoke(context.Background(), fn, Values{"a": 1, "b": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, Values{"a": 1, "b": 2}, seen, "only declared deps are injected")
}

func TestInvoke_UnknownDependency(t *testing.T) {
	fn := Named("needsUser", func(ctx context.Context, deps Values) (any, error) {
		return nil, nil
	}, "user")

	_, err := Invoke(context.Background(), fn, Values{})
	assert.ErrorIs(t, err, ErrUnknownDependency)
	assert.Contains(t, err.Error(), "needsUser(user)")
}

func TestInvoke_NilValueIsInjected(t *testing.T) {
	fn := Fn(func(ctx context.Context, deps Values) (any, error) {
		_, present := deps["pending"]
		return present, nil
	}, "pending")

	got, err := Invoke(context.Background(), fn, Values{"pending": nil})
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestInvoke_RecoversPanic(t *testing.T) {
	cause := errors.New("kaboom")
	fn := Fn(func(ctx context.Context, deps Values) (any, error) {
		panic(cause)
	})

	_, err := Invoke(context.Background(), fn, nil)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, pe.Stack)
}

func TestInvoke_NoFunction(t *testing.T) {
	_, err := Invoke(context.Background(), Injectable{}, nil)
	assert.Error(t, err)
}

func TestValues_Decode(t *testing.T) {
	var out struct {
		UserID string `inject:"userId"`
		Page   int    `inject:"page"`
	}
	err := Values{"userId": "u-1", "page": 3, "ignored": true}.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, "u-1", out.UserID)
	assert.Equal(t, 3, out.Page)
}

func TestGetAndMerge(t *testing.T) {
	v := Merge(Values{"a": 1, "b": "x"}, Values{"b": "y"})
	b, ok := Get[string](v, "b")
	assert.True(t, ok)
	assert.Equal(t, "y", b)

	_, ok = Get[string](v, "a")
	assert.False(t, ok, "wrong type is reported as missing")
}
