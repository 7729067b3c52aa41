// Package resolve computes the runtime closure of a Maven artifact.
//
// A resolution runs in four stages:
//
//  1. The graph builder expands the dependency graph level by level,
//     fetching descriptors through a memoized [DescriptorSource]. Only
//     occurrences that currently win their key are expanded.
//  2. [FilterScope] keeps nodes whose effective scope, combined along the
//     path with [CombineScope], is compile or runtime.
//  3. [ResolveConflicts] selects one node per (groupId, artifactId,
//     classifier): nearest to the root first, then first in depth-first
//     declaration order.
//  4. Every selected artifact is materialized into the local cache
//     through a [repository.Chain].
//
// Usage:
//
//	r := resolve.New(resolve.Options{Workers: 8})
//	res, err := r.Resolve(ctx, resolve.Request{
//		Root:         artifact.MustParseCoordinate("org.slf4j:slf4j-simple:2.0.12"),
//		Repositories: []artifact.Repository{artifact.NewRepository("https://repo1.maven.org/maven2")},
//		CacheDir:     dir,
//	})
//
// Results are deterministic: the same request against unchanged
// repositories yields the same artifacts in the same order.
package resolve
