package resolve

import (
	"testing"

	"github.com/matzehuels/libresolve/pkg/artifact"
)

func TestCombineScope(t *testing.T) {
	const (
		compile  = artifact.ScopeCompile
		runtime  = artifact.ScopeRuntime
		test     = artifact.ScopeTest
		provided = artifact.ScopeProvided
		system   = artifact.ScopeSystem
	)
	tests := []struct {
		name     string
		parent   artifact.Scope
		child    artifact.Scope
		rootEdge bool
		want     artifact.Scope
		eligible bool
	}{
		{"root compile", compile, compile, true, compile, true},
		{"root runtime", compile, runtime, true, runtime, true},
		{"root test", compile, test, true, test, false},
		{"root provided", compile, provided, true, provided, false},
		{"compile compile", compile, compile, false, compile, true},
		{"compile runtime", compile, runtime, false, runtime, true},
		{"runtime compile", runtime, compile, false, runtime, true},
		{"runtime runtime", runtime, runtime, false, runtime, true},
		{"compile test", compile, test, false, test, false},
		{"compile provided", compile, provided, false, provided, false},
		{"runtime system", runtime, system, false, system, false},
		{"below test", test, compile, false, compile, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CombineScope(tt.parent, tt.child, tt.rootEdge)
			if ok != tt.eligible {
				t.Errorf("eligible = %v, want %v", ok, tt.eligible)
			}
			if ok && got != tt.want {
				t.Errorf("scope = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFilterScope(t *testing.T) {
	root := mkNode(nil, "g:root:1", artifact.ScopeCompile)
	a := mkNode(root, "g:a:1", artifact.ScopeCompile)
	mkNode(root, "g:t:1", artifact.ScopeTest)
	d := mkNode(root, "g:d:1", artifact.ScopeCompile)
	d.Dropped = true
	r := mkNode(a, "g:r:1", artifact.ScopeRuntime)
	mkNode(a, "g:p:1", artifact.ScopeProvided)

	g := &Graph{Root: root, Nodes: preorder(root)}
	got := coords(FilterScope(g))
	want := []string{"g:root:1", "g:a:1", "g:r:1"}
	if !equal(got, want) {
		t.Errorf("FilterScope = %v, want %v", got, want)
	}
	if r.Effective != artifact.ScopeRuntime {
		t.Errorf("runtime child scope = %s", r.Effective)
	}
}
