package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/libresolve/pkg/artifact"
	errs "github.com/matzehuels/libresolve/pkg/errors"
)

// Node is one occurrence of a coordinate in the raw dependency graph.
// The same coordinate may occur many times at different paths.
type Node struct {
	Coordinate artifact.Coordinate

	Declared  artifact.Scope // scope on the incoming edge
	Effective artifact.Scope // scope combined along the path from the root
	Selected  artifact.Scope // scope after conflict resolution, set on winners

	Optional bool
	Eligible bool // effective scope is compile or runtime
	Cycle    bool // key already on the path from the root
	Dropped  bool // descriptor missing and the branch was dropped

	Depth    int
	Path     []int // child indices from the root
	Parent   *Node
	Children []*Node

	exclusions []artifact.Exclusion
}

// Key returns the conflict key of the node's coordinate.
func (n *Node) Key() artifact.Key { return n.Coordinate.Key() }

// Trail renders the chain of coordinates from the root to n.
func (n *Node) Trail() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		parts = append(parts, cur.Coordinate.String())
	}
	slices.Reverse(parts)
	return strings.Join(parts, " -> ")
}

func (n *Node) onPath(k artifact.Key) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Key() == k {
			return true
		}
	}
	return false
}

func (n *Node) excludes(c artifact.Coordinate) bool {
	for _, e := range n.exclusions {
		if e.Matches(c) {
			return true
		}
	}
	return false
}

// Graph is the raw dependency graph: every recorded occurrence, including
// losers, cycles and scope-pruned nodes.
type Graph struct {
	Root  *Node
	Nodes []*Node // depth-first order
}

// comparePaths orders child-index paths lexicographically, which is
// depth-first preorder.
func comparePaths(a, b []int) int {
	return slices.Compare(a, b)
}

// builder expands the graph one depth level at a time.
type builder struct {
	descriptors *descriptors
	workers     int
	maxDepth    int
	lenient     bool
	logger      *log.Logger

	nodes   []*Node
	won     map[artifact.Key]*Node
	skipped []Skipped
}

func newBuilder(d *descriptors, opts Options) *builder {
	return &builder{
		descriptors: d,
		workers:     opts.Workers,
		maxDepth:    opts.MaxDepth,
		lenient:     opts.Lenient,
		logger:      opts.Logger,
		won:         map[artifact.Key]*Node{},
	}
}

// build records the raw graph below root.
func (b *builder) build(ctx context.Context, root artifact.Coordinate) (*Graph, error) {
	rootNode := &Node{
		Coordinate: root,
		Declared:   artifact.ScopeCompile,
		Effective:  artifact.ScopeCompile,
		Eligible:   true,
		Path:       []int{},
	}
	b.nodes = append(b.nodes, rootNode)

	level := []*Node{rootNode}
	for depth := 0; len(level) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expanded, err := b.expand(ctx, level)
		if err != nil {
			return nil, err
		}
		var next []*Node
		for _, n := range expanded {
			next = append(next, n.Children...)
		}
		b.logger.Debug("level expanded", "depth", depth, "nodes", len(level), "expanded", len(expanded))
		level = next
	}

	slices.SortFunc(b.nodes, func(a, c *Node) int { return comparePaths(a.Path, c.Path) })
	return &Graph{Root: rootNode, Nodes: b.nodes}, nil
}

type fetched struct {
	deps []artifact.Dependency
	err  error
}

// expand fetches the descriptors of the current winners among level and
// records their children. It returns the expanded nodes in path order.
//
// Every fetch of the level completes before failures are inspected, so
// the reported failure is always the first one in depth-first order.
// When a winner is dropped because its descriptor is missing, the next
// occurrence of the same key in the level takes its place.
func (b *builder) expand(ctx context.Context, level []*Node) ([]*Node, error) {
	slices.SortFunc(level, func(a, c *Node) int { return comparePaths(a.Path, c.Path) })

	var expanded []*Node
	for {
		var batch []*Node
		for _, n := range level {
			if !n.Eligible || n.Cycle || n.Dropped {
				continue
			}
			if _, ok := b.won[n.Key()]; ok {
				continue
			}
			b.won[n.Key()] = n
			batch = append(batch, n)
		}
		if len(batch) == 0 {
			break
		}

		results := make([]fetched, len(batch))
		var g errgroup.Group
		g.SetLimit(b.workers)
		for i, n := range batch {
			g.Go(func() error {
				deps, err := b.descriptors.get(ctx, n.Coordinate)
				results[i] = fetched{deps: deps, err: err}
				return nil
			})
		}
		_ = g.Wait()

		var firstErr, cancelErr error
		retry := false
		for i, n := range batch {
			r := results[i]
			switch {
			case r.err == nil && n.Depth >= b.maxDepth:
				if !b.truncates(n, r.deps) {
					continue
				}
				if b.lenient {
					b.truncate(n)
					continue
				}
				if firstErr == nil {
					firstErr = errs.New(errs.ErrCodeInvalidInput, "dependency graph deeper than %d at %s", b.maxDepth, n.Trail()).
						WithCoordinate(n.Coordinate.String())
				}
				continue
			case r.err == nil:
				b.record(n, r.deps)
				expanded = append(expanded, n)
				continue
			case isCancellation(r.err):
				if cancelErr == nil {
					cancelErr = r.err
				}
				continue
			case !b.fatal(n, r.err):
				b.drop(n, r.err)
				retry = true
				continue
			}
			if firstErr == nil {
				firstErr = b.failure(n, r.err)
			}
		}
		switch {
		case firstErr != nil:
			return nil, firstErr
		case cancelErr != nil:
			return nil, cancelErr
		case !retry:
			slices.SortFunc(expanded, func(a, c *Node) int { return comparePaths(a.Path, c.Path) })
			return expanded, nil
		}
	}
	slices.SortFunc(expanded, func(a, c *Node) int { return comparePaths(a.Path, c.Path) })
	return expanded, nil
}

// fatal reports whether a descriptor failure for n aborts the resolution.
func (b *builder) fatal(n *Node, err error) bool {
	if n.Depth == 0 || !errs.IsNotFoundClass(err) {
		return true
	}
	return !n.Optional && !b.lenient
}

func (b *builder) drop(n *Node, err error) {
	n.Dropped = true
	delete(b.won, n.Key())
	if n.Optional {
		b.logger.Debug("optional dependency unavailable", "coordinate", n.Coordinate, "err", err)
		return
	}
	b.logger.Warn("skipping unavailable dependency", "coordinate", n.Coordinate, "trail", n.Trail())
	b.skipped = append(b.skipped, Skipped{
		Coordinate: n.Coordinate,
		Trail:      n.Trail(),
		Reason:     errs.UserMessage(err),
	})
}

// truncates reports whether any of deps would have been expanded below n.
func (b *builder) truncates(n *Node, deps []artifact.Dependency) bool {
	for _, d := range deps {
		if n.Depth > 0 && d.Optional {
			continue
		}
		c := d.Coordinate.Normalize()
		if n.excludes(c) || n.onPath(c.Key()) {
			continue
		}
		if _, ok := CombineScope(n.Effective, d.Scope, n.Depth == 0); ok {
			return true
		}
	}
	return false
}

func (b *builder) truncate(n *Node) {
	b.logger.Warn("maximum depth reached", "coordinate", n.Coordinate, "depth", n.Depth)
	b.skipped = append(b.skipped, Skipped{
		Coordinate: n.Coordinate,
		Trail:      n.Trail(),
		Reason:     fmt.Sprintf("dependencies not expanded beyond depth %d", b.maxDepth),
	})
}

func (b *builder) failure(n *Node, err error) error {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	if n.Depth == 0 {
		return errs.Wrap(code, err, "cannot resolve root %s", n.Coordinate).
			WithCoordinate(n.Coordinate.String())
	}
	return errs.Wrap(code, err, "cannot resolve dependency %s", n.Trail()).
		WithCoordinate(n.Coordinate.String())
}

// record turns the declared dependencies of n into child nodes.
func (b *builder) record(n *Node, deps []artifact.Dependency) {
	for _, d := range deps {
		if n.Depth > 0 && d.Optional {
			continue
		}
		c := d.Coordinate.Normalize()
		if n.excludes(c) {
			continue
		}
		child := &Node{
			Coordinate: c,
			Declared:   d.Scope,
			Optional:   d.Optional,
			Depth:      n.Depth + 1,
			Path:       append(slices.Clone(n.Path), len(n.Children)),
			Parent:     n,
		}
		child.Effective, child.Eligible = CombineScope(n.Effective, d.Scope, n.Depth == 0)
		child.Cycle = n.onPath(child.Key())
		child.exclusions = append(slices.Clone(n.exclusions), d.Exclusions...)

		n.Children = append(n.Children, child)
		b.nodes = append(b.nodes, child)
	}
}

func isCancellation(err error) bool {
	return errs.Is(err, errs.ErrCodeCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
