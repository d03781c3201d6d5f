// Package inject is the dependency-injection substrate used by hooks and resolvables.
//
// Go functions cannot report their parameter names, so an Injectable carries its
// dependency names explicitly, the same way an annotated function list does:
//
//	loadUser := inject.Fn(func(ctx context.Context, deps inject.Values) (any, error) {
//		return store.User(ctx, deps["userId"].(string))
//	}, "userId")
package inject

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrUnknownDependency is returned when a declared dependency has no value to inject.
var ErrUnknownDependency = errors.New("unknown dependency")

// Values maps dependency names to the values injected for them.
type Values map[string]any

// Func is the signature of every injectable function.
type Func func(ctx context.Context, deps Values) (any, error)

// Injectable is a function annotated with the names it depends on.
type Injectable struct {
	Name string
	Deps []string
	Fn   Func
}

// Fn annotates fn with its dependency names.
func Fn(fn Func, deps ...string) Injectable {
	return Injectable{Deps: deps, Fn: fn}
}

// Named annotates fn with a display name and its dependency names.
func Named(name string, fn Func, deps ...string) Injectable {
	return Injectable{Name: name, Deps: deps, Fn: fn}
}

// Annotate returns the dependency names of i.
func (i Injectable) Annotate() []string {
	out := make([]string, len(i.Deps))
	copy(out, i.Deps)
	return out
}

// IsZero reports whether i carries no function.
func (i Injectable) IsZero() bool {
	return i.Fn == nil
}

func (i Injectable) String() string {
	name := i.Name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(i.Deps, ", "))
}

// PanicError wraps a panic raised inside an injected function.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during injection: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Invoke calls i with exactly its declared dependencies picked from values.
// A dependency name absent from values fails with ErrUnknownDependency. A nil
// value for a present name is injected as nil. Panics are returned as *PanicError.
func Invoke(ctx context.Context, i Injectable, values Values) (result any, err error) {
	if i.Fn == nil {
		return nil, fmt.Errorf("cannot invoke %s: no function", i)
	}

	deps := make(Values, len(i.Deps))
	for _, name := range i.Deps {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q required by %s", ErrUnknownDependency, name, i)
		}
		deps[name] = v
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return i.Fn(ctx, deps)
}

// Merge overlays each layer on top of the previous ones.
func Merge(layers ...Values) Values {
	out := make(Values)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// Get returns the value named name converted to T.
func Get[T any](v Values, name string) (T, bool) {
	var zero T
	raw, ok := v[name]
	if !ok {
		return zero, false
	}
	typed, ok := raw.(T)
	return typed, ok
}

// Decode copies the values into the struct pointed to by out.
// Fields are matched by their `inject` tag, falling back to the field name.
func (v Values) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "inject",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(v)); err != nil {
		return fmt.Errorf("failed to decode injected values: %w", err)
	}
	return nil
}
