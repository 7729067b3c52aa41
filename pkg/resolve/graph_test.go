package resolve

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/cache"
	errs "github.com/matzehuels/libresolve/pkg/errors"
)

// fakeSource serves descriptors from memory and counts reads.
type fakeSource struct {
	mu    sync.Mutex
	deps  map[string][]artifact.Dependency
	fail  map[string]error
	calls map[string]int
	delay time.Duration

	// jitter adds a random delay of up to jitter to every read.
	jitter time.Duration
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		deps:  map[string][]artifact.Dependency{},
		fail:  map[string]error{},
		calls: map[string]int{},
	}
}

func pomKey(coord string) string {
	return artifact.MustParseCoordinate(coord).POM().String()
}

// add declares coord with the given dependencies.
func (f *fakeSource) add(coord string, deps ...artifact.Dependency) *fakeSource {
	f.deps[pomKey(coord)] = deps
	return f
}

func (f *fakeSource) failWith(coord string, err error) *fakeSource {
	f.fail[pomKey(coord)] = err
	return f
}

func (f *fakeSource) count(coord string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pomKey(coord)]
}

func (f *fakeSource) Read(ctx context.Context, c artifact.Coordinate) (*artifact.Descriptor, error) {
	delay := f.delay
	if f.jitter > 0 {
		delay += rand.N(f.jitter)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := c.POM().String()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if err, ok := f.fail[key]; ok {
		return nil, err
	}
	deps, ok := f.deps[key]
	if !ok {
		return nil, errs.New(errs.ErrCodeNotFound, "%s not found", key).WithCoordinate(key)
	}
	return &artifact.Descriptor{Coordinate: c, Dependencies: deps}, nil
}

func dep(coord string, scope artifact.Scope) artifact.Dependency {
	return artifact.Dependency{Coordinate: artifact.MustParseCoordinate(coord), Scope: scope}
}

func compileDep(coord string) artifact.Dependency { return dep(coord, artifact.ScopeCompile) }

func optionalDep(coord string) artifact.Dependency {
	d := compileDep(coord)
	d.Optional = true
	return d
}

func excluding(d artifact.Dependency, groupID, artifactID string) artifact.Dependency {
	d.Exclusions = append(d.Exclusions, artifact.Exclusion{GroupID: groupID, ArtifactID: artifactID})
	return d
}

func buildGraph(t *testing.T, src DescriptorSource, root string, opts Options) (*Graph, *builder, error) {
	t.Helper()
	opts = opts.WithDefaults()
	d := newDescriptors(src, cache.NewNullCache(), cache.NewDefaultKeyer(), time.Hour, opts.Logger)
	b := newBuilder(d, opts)
	g, err := b.build(context.Background(), artifact.MustParseCoordinate(root))
	return g, b, err
}

// closure returns the selected coordinates for root.
func closure(t *testing.T, src DescriptorSource, root string, opts Options) []string {
	t.Helper()
	g, _, err := buildGraph(t, src, root, opts)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	winners, _ := ResolveConflicts(FilterScope(g))
	return coords(winners)
}

func TestBuildDepthFirstOrder(t *testing.T) {
	src := newFakeSource().
		add("g:root:1", compileDep("g:a:1"), compileDep("g:b:1")).
		add("g:a:1", compileDep("g:c:1"), compileDep("g:d:1")).
		add("g:b:1", compileDep("g:e:1")).
		add("g:c:1").add("g:d:1").add("g:e:1")

	want := []string{"g:root:1", "g:a:1", "g:c:1", "g:d:1", "g:b:1", "g:e:1"}
	for _, workers := range []int{1, 4, 32} {
		got := closure(t, src, "g:root:1", Options{Workers: workers})
		if !equal(got, want) {
			t.Errorf("workers=%d: closure = %v, want %v", workers, got, want)
		}
	}
}

func TestBuildNearestWins(t *testing.T) {
	src := newFakeSource().
		add("g:root:1", compileDep("g:a:1"), compileDep("g:b:1")).
		add("g:a:1", compileDep("g:x:1")).
		add("g:x:1", compileDep("g:c:2")).
		add("g:c:2", compileDep("g:deep:1")).
		add("g:b:1", compileDep("g:c:1")).
		add("g:c:1").add("g:deep:1")

	got := closure(t, src, "g:root:1", Options{})
	want := []string{"g:root:1", "g:a:1", "g:x:1", "g:b:1", "g:c:1"}
	if !equal(got, want) {
		t.Errorf("closure = %v, want %v", got, want)
	}
	if n := src.count("g:c:2"); n != 0 {
		t.Errorf("losing occurrence was expanded %d times", n)
	}
	if n := src.count("g:deep:1"); n != 0 {
		t.Errorf("subtree of a loser was fetched %d times", n)
	}
}

func TestBuildCycles(t *testing.T) {
	src := newFakeSource().
		add("g:a:1", compileDep("g:b:1")).
		add("g:b:1", compileDep("g:c:1")).
		add("g:c:1", compileDep("g:a:1"), compileDep("g:b:2"))

	g, _, err := buildGraph(t, src, "g:a:1", Options{})
	if err != nil {
		t.Fatal(err)
	}
	cycles := 0
	for _, n := range g.Nodes {
		if n.Cycle {
			cycles++
			if len(n.Children) != 0 {
				t.Errorf("cycle node %s was expanded", n.Coordinate)
			}
		}
	}
	if cycles != 2 {
		t.Errorf("cycle nodes = %d, want 2", cycles)
	}
	winners, _ := ResolveConflicts(FilterScope(g))
	want := []string{"g:a:1", "g:b:1", "g:c:1"}
	if got := coords(winners); !equal(got, want) {
		t.Errorf("closure = %v, want %v", got, want)
	}
}

func TestBuildScopePruning(t *testing.T) {
	src := newFakeSource().
		add("g:root:1",
			compileDep("g:a:1"),
			dep("g:junit:4", artifact.ScopeTest),
			dep("g:servlet:3", artifact.ScopeProvided),
			dep("g:rt:1", artifact.ScopeRuntime)).
		add("g:a:1", dep("g:a-test:1", artifact.ScopeTest), dep("g:a-rt:1", artifact.ScopeRuntime)).
		add("g:rt:1", compileDep("g:rt-dep:1")).
		add("g:a-rt:1").add("g:rt-dep:1").add("g:junit:4").add("g:servlet:3").add("g:a-test:1")

	g, _, err := buildGraph(t, src, "g:root:1", Options{})
	if err != nil {
		t.Fatal(err)
	}
	winners, _ := ResolveConflicts(FilterScope(g))
	want := []string{"g:root:1", "g:a:1", "g:a-rt:1", "g:rt:1", "g:rt-dep:1"}
	if got := coords(winners); !equal(got, want) {
		t.Fatalf("closure = %v, want %v", got, want)
	}
	scopes := map[string]artifact.Scope{}
	for _, w := range winners {
		scopes[w.Coordinate.ArtifactID] = w.Selected
	}
	if scopes["rt-dep"] != artifact.ScopeRuntime || scopes["a-rt"] != artifact.ScopeRuntime {
		t.Errorf("scopes = %v, want runtime for rt-dep and a-rt", scopes)
	}
	for _, id := range []string{"g:junit:4", "g:servlet:3", "g:a-test:1"} {
		if n := src.count(id); n != 0 {
			t.Errorf("pruned %s was fetched %d times", id, n)
		}
	}
}

func TestBuildOptionalDependencies(t *testing.T) {
	src := newFakeSource().
		add("g:root:1", optionalDep("g:opt:1"), optionalDep("g:gone:1"), compileDep("g:a:1")).
		add("g:opt:1").
		add("g:a:1", optionalDep("g:a-opt:1")).
		add("g:a-opt:1")

	got := closure(t, src, "g:root:1", Options{})
	want := []string{"g:root:1", "g:opt:1", "g:a:1"}
	if !equal(got, want) {
		t.Errorf("closure = %v, want %v", got, want)
	}
}

func TestBuildExclusions(t *testing.T) {
	src := newFakeSource().
		add("g:root:1", excluding(compileDep("g:a:1"), "log", "*"), compileDep("g:b:1")).
		add("g:a:1", compileDep("g:x:1")).
		add("g:x:1", compileDep("log:log4j:1"), compileDep("log:api:1"), compileDep("g:y:1")).
		add("g:b:1").add("g:y:1")

	got := closure(t, src, "g:root:1", Options{})
	want := []string{"g:root:1", "g:a:1", "g:x:1", "g:y:1", "g:b:1"}
	if !equal(got, want) {
		t.Errorf("closure = %v, want %v", got, want)
	}
}

func TestBuildMaxDepth(t *testing.T) {
	src := func() *fakeSource {
		return newFakeSource().
			add("g:root:1", compileDep("g:a:1")).
			add("g:a:1", compileDep("g:b:1")).
			add("g:b:1", compileDep("g:c:1"), dep("g:t:1", artifact.ScopeTest)).
			add("g:c:1")
	}

	t.Run("strict", func(t *testing.T) {
		_, _, err := buildGraph(t, src(), "g:root:1", Options{MaxDepth: 2})
		if !errs.Is(err, errs.ErrCodeInvalidInput) {
			t.Fatalf("err = %v, want INVALID_INPUT", err)
		}
		if got := errs.CoordinateOf(err); got != "g:b:1" {
			t.Errorf("coordinate = %q", got)
		}
		if !strings.Contains(err.Error(), "g:root:1 -> g:a:1 -> g:b:1") {
			t.Errorf("error should name the dependency trail: %v", err)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		s := src()
		g, b, err := buildGraph(t, s, "g:root:1", Options{MaxDepth: 2, Lenient: true})
		if err != nil {
			t.Fatal(err)
		}
		winners, _ := ResolveConflicts(FilterScope(g))
		want := []string{"g:root:1", "g:a:1", "g:b:1"}
		if got := coords(winners); !equal(got, want) {
			t.Errorf("closure = %v, want %v", got, want)
		}
		if len(b.skipped) != 1 || b.skipped[0].Coordinate.ArtifactID != "b" {
			t.Errorf("skipped = %+v", b.skipped)
		}
		if n := s.count("g:c:1"); n != 0 {
			t.Errorf("dependency below max depth was fetched %d times", n)
		}
	})

	t.Run("leaf at max depth", func(t *testing.T) {
		g, b, err := buildGraph(t, src(), "g:root:1", Options{MaxDepth: 3})
		if err != nil {
			t.Fatal(err)
		}
		winners, _ := ResolveConflicts(FilterScope(g))
		want := []string{"g:root:1", "g:a:1", "g:b:1", "g:c:1"}
		if got := coords(winners); !equal(got, want) {
			t.Errorf("closure = %v, want %v", got, want)
		}
		if len(b.skipped) != 0 {
			t.Errorf("skipped = %+v", b.skipped)
		}
	})
}

func TestBuildMissingDescriptors(t *testing.T) {
	t.Run("root", func(t *testing.T) {
		_, _, err := buildGraph(t, newFakeSource(), "g:root:1", Options{})
		if !errs.Is(err, errs.ErrCodeNotFound) {
			t.Fatalf("err = %v, want NOT_FOUND", err)
		}
		if got := errs.CoordinateOf(err); got != "g:root:1" {
			t.Errorf("coordinate = %q, want root", got)
		}
	})

	src := func() *fakeSource {
		return newFakeSource().
			add("g:root:1", compileDep("g:a:1"), compileDep("g:b:1")).
			add("g:a:1", compileDep("g:missing:1")).
			add("g:b:1")
	}

	t.Run("strict", func(t *testing.T) {
		_, _, err := buildGraph(t, src(), "g:root:1", Options{})
		if !errs.Is(err, errs.ErrCodeNotFound) {
			t.Fatalf("err = %v, want NOT_FOUND", err)
		}
		if got := errs.CoordinateOf(err); got != "g:missing:1" {
			t.Errorf("coordinate = %q", got)
		}
		if !strings.Contains(err.Error(), "g:root:1 -> g:a:1 -> g:missing:1") {
			t.Errorf("error should name the dependency trail: %v", err)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		g, b, err := buildGraph(t, src(), "g:root:1", Options{Lenient: true})
		if err != nil {
			t.Fatal(err)
		}
		winners, _ := ResolveConflicts(FilterScope(g))
		want := []string{"g:root:1", "g:a:1", "g:b:1"}
		if got := coords(winners); !equal(got, want) {
			t.Errorf("closure = %v, want %v", got, want)
		}
		if len(b.skipped) != 1 || b.skipped[0].Coordinate.ArtifactID != "missing" {
			t.Errorf("skipped = %+v", b.skipped)
		}
	})

	t.Run("transient is fatal even when optional", func(t *testing.T) {
		s := newFakeSource().
			add("g:root:1", optionalDep("g:flaky:1")).
			failWith("g:flaky:1", errs.New(errs.ErrCodeTransientFetch, "503"))
		_, _, err := buildGraph(t, s, "g:root:1", Options{Lenient: true})
		if !errs.Is(err, errs.ErrCodeTransientFetch) {
			t.Fatalf("err = %v, want TRANSIENT_FETCH", err)
		}
	})

	t.Run("first failure in depth-first order", func(t *testing.T) {
		s := newFakeSource().add("g:root:1", compileDep("g:x:1"), compileDep("g:y:1"))
		for range 5 {
			_, _, err := buildGraph(t, s, "g:root:1", Options{Workers: 8})
			if got := errs.CoordinateOf(err); got != "g:x:1" {
				t.Fatalf("coordinate = %q, want g:x:1", got)
			}
		}
	})
}

func TestBuildReplacesDroppedWinner(t *testing.T) {
	src := newFakeSource().
		add("g:root:1", optionalDep("g:lib:1"), compileDep("g:lib:2")).
		add("g:lib:2", compileDep("g:dep:1")).
		add("g:dep:1")

	got := closure(t, src, "g:root:1", Options{})
	want := []string{"g:root:1", "g:lib:2", "g:dep:1"}
	if !equal(got, want) {
		t.Errorf("closure = %v, want %v", got, want)
	}
}

func TestBuildSharesDescriptorAcrossClassifiers(t *testing.T) {
	src := newFakeSource().
		add("g:root:1", compileDep("g:core:1"), compileDep("g:core:jar:tests:1")).
		add("g:core:1")

	got := closure(t, src, "g:root:1", Options{})
	want := []string{"g:root:1", "g:core:1", "g:core:jar:tests:1"}
	if !equal(got, want) {
		t.Errorf("closure = %v, want %v", got, want)
	}
	if n := src.count("g:core:1"); n != 1 {
		t.Errorf("descriptor fetched %d times, want 1", n)
	}
}

func TestBuildCancelled(t *testing.T) {
	src := newFakeSource().add("g:root:1", compileDep("g:a:1")).add("g:a:1")
	src.delay = time.Second

	opts := Options{}.WithDefaults()
	d := newDescriptors(src, cache.NewNullCache(), cache.NewDefaultKeyer(), time.Hour, opts.Logger)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newBuilder(d, opts).build(ctx, artifact.MustParseCoordinate("g:root:1"))
	if !isCancellation(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("cancellation took %s", time.Since(start))
	}
}
