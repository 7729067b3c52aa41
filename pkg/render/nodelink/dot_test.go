package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

func sampleResult() *resolve.Result {
	root := artifact.MustParseCoordinate("org.example:app:1.0")
	guava := artifact.MustParseCoordinate("com.google.guava:guava:33.0.0-jre")
	access := artifact.MustParseCoordinate("com.google.guava:failureaccess:1.0.2")
	slf4j := artifact.MustParseCoordinate("org.slf4j:slf4j-simple:2.0.12")
	return &resolve.Result{
		Root:        root,
		Fingerprint: "00000000deadbeef",
		Artifacts: []artifact.Resolved{
			{Coordinate: root, Scope: artifact.ScopeCompile, Depth: 0},
			{Coordinate: guava, Scope: artifact.ScopeCompile, Depth: 1, Origin: "https://repo.maven.apache.org/maven2"},
			{Coordinate: access, Scope: artifact.ScopeCompile, Depth: 2},
			{Coordinate: slf4j, Scope: artifact.ScopeRuntime, Depth: 1},
		},
		Edges: []resolve.Edge{
			{From: root.String(), To: guava.String(), Scope: artifact.ScopeCompile},
			{From: guava.String(), To: access.String(), Scope: artifact.ScopeCompile},
			{From: root.String(), To: slf4j.String(), Scope: artifact.ScopeRuntime},
		},
	}
}

func TestFromResult(t *testing.T) {
	g, err := FromResult(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if g.NodeCount() != 4 || g.EdgeCount() != 3 {
		t.Fatalf("got %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if g.MaxRow() != 2 {
		t.Errorf("MaxRow() = %d, want 2", g.MaxRow())
	}
	guava, ok := g.Node("com.google.guava:guava:33.0.0-jre")
	if !ok {
		t.Fatal("guava missing")
	}
	if guava.Meta[MetaOrigin] != "https://repo.maven.apache.org/maven2" {
		t.Errorf("origin = %v", guava.Meta[MetaOrigin])
	}
	access, _ := g.Node("com.google.guava:failureaccess:1.0.2")
	if _, ok := access.Meta[MetaOrigin]; ok {
		t.Error("cached artifact should have no origin")
	}
	if g.Meta()["fingerprint"] != "00000000deadbeef" {
		t.Errorf("fingerprint meta = %v", g.Meta()["fingerprint"])
	}
}

func TestFromResultRejectsBrokenEdges(t *testing.T) {
	res := sampleResult()
	res.Edges = append(res.Edges, resolve.Edge{From: "org.example:app:1.0", To: "x:y:1"})
	if _, err := FromResult(res); err == nil {
		t.Fatal("expected error for edge to unknown artifact")
	}
}

func TestToDOT(t *testing.T) {
	g, err := FromResult(sampleResult())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		opts     Options
		contains []string
		excludes []string
	}{
		{
			name: "simple",
			contains: []string{
				"digraph G {",
				`"org.example:app:1.0" [label="org.example:app:1.0", fillcolor=lightblue, penwidth=2];`,
				`"com.google.guava:guava:33.0.0-jre" [label="com.google.guava:guava:33.0.0-jre", fillcolor=lightyellow];`,
				`"org.example:app:1.0" -> "com.google.guava:guava:33.0.0-jre";`,
				`"org.example:app:1.0" -> "org.slf4j:slf4j-simple:2.0.12" [style=dashed];`,
				`style="rounded,filled,dashed"`,
			},
			excludes: []string{"depth:"},
		},
		{
			name: "detailed",
			opts: Options{Detailed: true},
			contains: []string{
				`depth: 2\nscope: compile`,
				`origin: https://repo.maven.apache.org/maven2`,
			},
			excludes: []string{"version:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dot := ToDOT(g, tt.opts)
			for _, s := range tt.contains {
				if !strings.Contains(dot, s) {
					t.Errorf("DOT missing %q\n%s", s, dot)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(dot, s) {
					t.Errorf("DOT unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`
	if !strings.HasPrefix(out, want) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg></svg>")); string(got) != "<svg></svg>" {
		t.Errorf("no viewBox should pass through, got %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	g, err := FromResult(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	svg, err := RenderSVG(t.Context(), ToDOT(g, Options{}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "failureaccess") {
		t.Errorf("unexpected SVG output: %.200s", svg)
	}
}
