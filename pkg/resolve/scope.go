package resolve

import "github.com/matzehuels/libresolve/pkg/artifact"

// CombineScope returns the effective scope of a dependency declared with
// scope child by a node whose own effective scope is parent, and whether
// the dependency is eligible for the runtime closure.
//
// On a root edge the declared scope is used as is. Below the root, test,
// provided and system edges never propagate, and runtime on either side
// makes the result runtime.
func CombineScope(parent, child artifact.Scope, rootEdge bool) (artifact.Scope, bool) {
	if rootEdge {
		return child, child.Propagates()
	}
	if !parent.Propagates() || !child.Propagates() {
		return child, false
	}
	if parent == artifact.ScopeRuntime || child == artifact.ScopeRuntime {
		return artifact.ScopeRuntime, true
	}
	return artifact.ScopeCompile, true
}

// FilterScope returns the nodes of g that take part in conflict
// resolution: eligible and not dropped, in depth-first order.
func FilterScope(g *Graph) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Eligible && !n.Dropped {
			out = append(out, n)
		}
	}
	return out
}
