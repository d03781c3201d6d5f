package resolve

import (
	"sync"

	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/state"
)

// Node is one level of a path: a state together with its param values and resolvables.
type Node struct {
	State       *state.State
	ParamSchema params.Schema
	ParamValues map[string]any
	Views       []any

	mu       sync.RWMutex
	resolves []*Resolvable
}

// NewNode creates a node for s with fresh resolvables built from its declarations.
func NewNode(s *state.State) *Node {
	n := &Node{
		State:       s,
		ParamSchema: s.Params,
		ParamValues: map[string]any{},
		resolves:    FromDecls(s.Resolve),
	}
	n.Views = append(n.Views, s.Views...)
	return n
}

// ApplyRawParams sets the node's param values from raw, applying defaults and
// dropping ids the node does not own.
func (n *Node) ApplyRawParams(raw map[string]any) *Node {
	n.ParamValues = n.ParamSchema.Values(raw)
	return n
}

// Clone copies the node. The clone shares the resolvable instances of n.
func (n *Node) Clone() *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()

	c := &Node{
		State:       n.State,
		ParamSchema: n.ParamSchema,
		ParamValues: make(map[string]any, len(n.ParamValues)),
		Views:       append([]any(nil), n.Views...),
		resolves:    append([]*Resolvable(nil), n.resolves...),
	}
	for k, v := range n.ParamValues {
		c.ParamValues[k] = v
	}
	return c
}

// Resolvables returns the node's resolvables.
func (n *Node) Resolvables() []*Resolvable {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Resolvable(nil), n.resolves...)
}

// Resolvable returns the resolvable named name.
func (n *Node) Resolvable(name string) (*Resolvable, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, r := range n.resolves {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// AddResolvables adds rs to the node. A resolvable replaces a same-named entry
// only while that entry is unsettled; settled entries are kept.
func (n *Node) AddResolvables(rs ...*Resolvable) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, r := range rs {
		replaced := false
		for i, existing := range n.resolves {
			if existing.Name != r.Name {
				continue
			}
			if !existing.Settled() {
				n.resolves[i] = r
			}
			replaced = true
			break
		}
		if !replaced {
			n.resolves = append(n.resolves, r)
		}
	}
}

// Bind sets r on the node, replacing any same-named resolvable even when settled.
// It is meant for the reserved per-transition resolvables.
func (n *Node) Bind(r *Resolvable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.resolves {
		if existing.Name == r.Name {
			n.resolves[i] = r
			return
		}
	}
	n.resolves = append(n.resolves, r)
}

func (n *Node) has(r *Resolvable) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, existing := range n.resolves {
		if existing == r {
			return true
		}
	}
	return false
}

// Equals reports whether both nodes are for the same state with equal param values.
// With nonDynamicOnly, dynamic params are left out of the comparison.
func (n *Node) Equals(other *Node, nonDynamicOnly bool) bool {
	if other == nil || n.State != other.State {
		return false
	}
	return n.ParamSchema.Equal(n.ParamValues, other.ParamValues, nonDynamicOnly)
}

// Path is an ordered root-first sequence of nodes.
type Path []*Node

// Leaf returns the last node, or nil for an empty path.
func (p Path) Leaf() *Node {
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1]
}

// States returns the state of every node.
func (p Path) States() []*state.State {
	out := make([]*state.State, len(p))
	for i, n := range p {
		out[i] = n.State
	}
	return out
}

// Find returns the node for s.
func (p Path) Find(s *state.State) (*Node, int) {
	for i, n := range p {
		if n.State == s {
			return n, i
		}
	}
	return nil, -1
}

// SubPath returns the nodes from the root down to the node for s, or nil if s
// is not on the path.
func (p Path) SubPath(s *state.State) Path {
	_, i := p.Find(s)
	if i < 0 {
		return nil
	}
	return p[:i+1]
}

// ParamValues merges the param values of every node, root first.
func (p Path) ParamValues() map[string]any {
	out := map[string]any{}
	for _, n := range p {
		for k, v := range n.ParamValues {
			out[k] = v
		}
	}
	return out
}

// Reverse returns a leaf-first copy of p.
func (p Path) Reverse() Path {
	out := make(Path, len(p))
	for i, n := range p {
		out[len(p)-1-i] = n
	}
	return out
}

// Name returns the leaf state name, or "" for an empty path.
func (p Path) Name() string {
	if leaf := p.Leaf(); leaf != nil {
		return leaf.State.Name
	}
	return ""
}
