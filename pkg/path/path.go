// Package path builds the paths of a transition and computes the tree changes
// between the current location and a target.
package path

import (
	"github.com/aretw0/arbor/pkg/resolve"
	"github.com/aretw0/arbor/pkg/state"
)

// ViewAttacher turns a view declaration of a node's state into the view config
// attached to that node.
type ViewAttacher func(n *resolve.Node, view any) any

// TreeChanges holds the paths of one transition.
type TreeChanges struct {
	From     resolve.Path
	To       resolve.Path
	Retained resolve.Path
	// RetainedWithToParams are the retained nodes carrying the target's param values.
	RetainedWithToParams resolve.Path
	Exiting              resolve.Path
	Entering             resolve.Path
}

// Get returns a path by name: to, from, retained, exiting or entering.
func (tc TreeChanges) Get(name string) (resolve.Path, bool) {
	switch name {
	case "to":
		return tc.To, true
	case "from":
		return tc.From, true
	case "retained":
		return tc.Retained, true
	case "exiting":
		return tc.Exiting, true
	case "entering":
		return tc.Entering, true
	}
	return nil, false
}

// BuildPath creates a fresh node for every state from the root to the target,
// with the target's param values applied.
func BuildPath(target *state.TargetState) resolve.Path {
	raw := target.Params()
	states := target.State().Path()
	p := make(resolve.Path, 0, len(states))
	for _, s := range states {
		p = append(p, resolve.NewNode(s).ApplyRawParams(raw))
	}
	return p
}

// BuildToPath builds the path of target. With the Inherit option, params the
// target does not set explicitly are copied from the matching nodes of from.
func BuildToPath(from resolve.Path, target *state.TargetState) resolve.Path {
	to := BuildPath(target)
	if target.Options().Inherit {
		InheritParams(from, to, target.Params())
	}
	return to
}

// InheritParams copies into to the param values of from that explicit does not set.
func InheritParams(from, to resolve.Path, explicit map[string]any) {
	for _, node := range to {
		prev, _ := from.Find(node.State)
		if prev == nil {
			continue
		}
		for _, id := range node.ParamSchema.IDs() {
			if _, set := explicit[id]; set {
				continue
			}
			if v, ok := prev.ParamValues[id]; ok {
				node.ParamValues[id] = v
			}
		}
	}
}

// ApplyViewConfigs replaces the views of the nodes whose state is in states
// with the configs built by attach. A nil attach keeps the declarations as is.
func ApplyViewConfigs(attach ViewAttacher, p resolve.Path, states []*state.State) resolve.Path {
	include := make(map[*state.State]bool, len(states))
	for _, s := range states {
		include[s] = true
	}
	for _, node := range p {
		if !include[node.State] {
			continue
		}
		views := make([]any, 0, len(node.State.Views))
		for _, v := range node.State.Views {
			if attach != nil {
				v = attach(node, v)
			}
			views = append(views, v)
		}
		node.Views = views
	}
	return p
}

// Changes computes the tree changes between from and to.
//
// Nodes are retained from the root down while both paths are on the same
// state with equal non-dynamic params, stopping at reloadState. Retained nodes
// of the to path are clones of the from nodes, so they keep their resolvables.
func Changes(from, to resolve.Path, reloadState *state.State) TreeChanges {
	keep := 0
	limit := min(len(from), len(to))
	for keep < limit && from[keep].State != reloadState && from[keep].Equals(to[keep], true) {
		keep++
	}

	retained := from[:keep]
	withToParams := make(resolve.Path, keep)
	for i, node := range retained {
		c := node.Clone()
		c.ParamValues = to[i].ParamValues
		c.Views = to[i].Views
		withToParams[i] = c
	}
	entering := to[keep:]

	newTo := make(resolve.Path, 0, len(to))
	newTo = append(append(newTo, withToParams...), entering...)

	return TreeChanges{
		From:                 from,
		To:                   newTo,
		Retained:             retained,
		RetainedWithToParams: withToParams,
		Exiting:              from[keep:],
		Entering:             entering,
	}
}

// Matching returns the leading nodes of a whose states match b position by position.
func Matching(a, b resolve.Path) resolve.Path {
	var out resolve.Path
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].State != b[i].State {
			break
		}
		out = append(out, a[i])
	}
	return out
}

// BindTransitionResolve binds the reserved resolvables of a transition to its
// to path: the transition on the root node and the merged param values on every node.
func BindTransitionResolve(tc TreeChanges, transition any) {
	if len(tc.To) == 0 {
		return
	}
	tc.To[0].Bind(resolve.NewResolved(resolve.TransitionToken, transition))
	for i, node := range tc.To {
		node.Bind(resolve.NewResolved(resolve.StateParamsToken, tc.To[:i+1].ParamValues()))
	}
}

// CopyResolves moves the resolvables of the matching nodes of src into dst,
// so data already resolved is reused. Reserved resolvables are not copied, nor
// are those of nodes at or below reloadState.
func CopyResolves(dst, src resolve.Path, reloadState *state.State) {
	for i, node := range Matching(dst, src) {
		if reloadState != nil && node.State.IsDescendantOf(reloadState) {
			continue
		}
		var copied []*resolve.Resolvable
		for _, r := range src[i].Resolvables() {
			if !resolve.IsReserved(r.Name) {
				copied = append(copied, r)
			}
		}
		node.AddResolvables(copied...)
	}
}
