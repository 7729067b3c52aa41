package resolve

import (
	"slices"

	"github.com/matzehuels/libresolve/pkg/artifact"
)

// ResolveConflicts picks one node per key from the eligible nodes: the
// nearest to the root, ties broken by depth-first declaration order.
// Nodes whose parent did not win are discarded with their subtree.
//
// Winners are returned in depth-first order, root first. A Conflict is
// reported for every key that was requested in more than one version.
//
// A winner keeps the scope computed along its own path. Nothing is taken
// from the losing occurrences.
func ResolveConflicts(nodes []*Node) ([]*Node, []Conflict) {
	ordered := slices.Clone(nodes)
	slices.SortStableFunc(ordered, func(a, b *Node) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}
		return comparePaths(a.Path, b.Path)
	})

	won := map[artifact.Key]*Node{}
	losers := map[artifact.Key][]*Node{}
	for _, n := range ordered {
		if n.Parent != nil && won[n.Parent.Key()] != n.Parent {
			continue
		}
		k := n.Key()
		if _, ok := won[k]; !ok {
			won[k] = n
			n.Selected = n.Effective
			continue
		}
		losers[k] = append(losers[k], n)
	}

	winners := make([]*Node, 0, len(won))
	for _, n := range won {
		winners = append(winners, n)
	}
	slices.SortFunc(winners, func(a, b *Node) int { return comparePaths(a.Path, b.Path) })

	var conflicts []Conflict
	for _, w := range winners {
		c, ok := conflictFor(w, losers[w.Key()])
		if ok {
			conflicts = append(conflicts, c)
		}
	}
	return winners, conflicts
}

func conflictFor(w *Node, losers []*Node) (Conflict, bool) {
	c := Conflict{Key: w.Key().String(), Winner: w.Coordinate}
	seen := map[string]bool{w.Coordinate.Version: true}
	for _, l := range losers {
		v := l.Coordinate.Version
		if seen[v] {
			continue
		}
		seen[v] = true
		c.Losers = append(c.Losers, l.Coordinate)
		if compareVersions(v, w.Coordinate.Version) > 0 {
			c.Downgrade = true
		}
	}
	return c, len(c.Losers) > 0
}
