package dsl

import (
	"sort"

	"github.com/aretw0/arbor/pkg/state"
)

// Builder manages the construction of a state tree.
type Builder struct {
	order  []string
	states map[string]*StateBuilder
}

// New creates a new tree builder.
func New() *Builder {
	return &Builder{
		states: make(map[string]*StateBuilder),
	}
}

// State starts the declaration of a state.
// If the state was already added, it returns the existing builder.
func (b *Builder) State(name string) *StateBuilder {
	if sb, ok := b.states[name]; ok {
		return sb
	}
	sb := &StateBuilder{decl: state.Declaration{Name: name}}
	b.states[name] = sb
	b.order = append(b.order, name)
	return sb
}

// Build returns the declarations with every parent ahead of its children.
// States at the same depth keep the order they were added in.
func (b *Builder) Build() []state.Declaration {
	decls := make([]state.Declaration, 0, len(b.order))
	for _, name := range b.order {
		decls = append(decls, b.states[name].Build())
	}
	depth := make(map[string]int, len(decls))
	for _, d := range decls {
		depth[d.Name] = b.depth(d.Name, map[string]bool{})
	}
	sort.SliceStable(decls, func(i, j int) bool {
		return depth[decls[i].Name] < depth[decls[j].Name]
	})
	return decls
}

// depth counts the ancestors of name declared in the builder.
// A parent cycle stops the count.
func (b *Builder) depth(name string, seen map[string]bool) int {
	sb, ok := b.states[name]
	if !ok || seen[name] {
		return 0
	}
	seen[name] = true
	parent := sb.parent()
	if _, declared := b.states[parent]; !declared {
		return 0
	}
	return 1 + b.depth(parent, seen)
}

// Install registers the built declarations into reg.
func (b *Builder) Install(reg *state.Registry) error {
	for _, decl := range b.Build() {
		if _, err := reg.Register(decl); err != nil {
			return err
		}
	}
	return nil
}
