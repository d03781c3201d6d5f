// Package resolve implements paths of state nodes and the resolution of their
// named dependencies.
//
// A Resolvable is computed once and cached. A Context answers which resolvables
// are visible at a node, resolves them according to their policy
// (domain.PolicyEager before domain.PolicyLazy before domain.PolicyJIT), and
// injects them into functions.
package resolve
