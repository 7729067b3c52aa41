package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/dag"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

// Metadata keys set on nodes by [FromResult].
const (
	MetaVersion = "version"
	MetaScope   = "scope"
	MetaOrigin  = "origin"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes depth, scope and origin in node labels.
	// When false, only the coordinate is shown.
	Detailed bool
}

// FromResult builds a layered graph from a resolution: one node per
// selected artifact in the row of its depth, one edge per declaring
// parent.
func FromResult(res *resolve.Result) (*dag.DAG, error) {
	g := dag.New(dag.Metadata{
		"root":        res.Root.String(),
		"fingerprint": res.Fingerprint,
	})
	for _, a := range res.Artifacts {
		meta := dag.Metadata{
			MetaVersion: a.Coordinate.Version,
			MetaScope:   a.Scope.String(),
		}
		if !a.Cached() {
			meta[MetaOrigin] = a.Origin
		}
		if err := g.AddNode(dag.Node{ID: a.Coordinate.String(), Row: a.Depth, Meta: meta}); err != nil {
			return nil, fmt.Errorf("add %s: %w", a.Coordinate, err)
		}
	}
	for _, e := range res.Edges {
		if err := g.AddEdge(dag.Edge{From: e.From, To: e.To, Meta: dag.Metadata{MetaScope: e.Scope.String()}}); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolution graph: %w", err)
	}
	return g, nil
}

// ToDOT converts a DAG to Graphviz DOT format for node-link visualization.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Row 0 is drawn as the root. Runtime-scoped artifacts get dashed outlines
// and artifacts downloaded during the resolution are shaded.
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(*n, opts.Detailed)
		attrs := fmtAttrs(*n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Meta[MetaScope] == artifact.ScopeRuntime.String() {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n dag.Node, detailed bool) string {
	if !detailed {
		return n.ID
	}

	parts := []string{fmt.Sprintf("depth: %d", n.Row)}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		if k == MetaVersion {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}

	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n dag.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	style := "rounded,filled"
	if n.Meta[MetaScope] == artifact.ScopeRuntime.String() {
		style += ",dashed"
	}
	if style != "rounded,filled" {
		attrs = append(attrs, fmt.Sprintf("style=%q", style))
	}
	switch {
	case n.Row == 0:
		attrs = append(attrs, "fillcolor=lightblue", "penwidth=2")
	case n.Meta[MetaOrigin] != nil:
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
