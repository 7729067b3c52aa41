// Package pkg provides the libraries behind libresolve, a transitive Maven
// dependency resolver.
//
// # Overview
//
// Given a root coordinate and an ordered list of repositories, libresolve
// computes the compile and runtime closure of the root, keeps one version
// per library using nearest-wins conflict resolution and downloads every
// selected artifact into a local cache laid out like a Maven repository.
//
// # Architecture
//
// The data flow of a resolution:
//
//	Request (root coordinate + repositories + cache dir)
//	         ↓
//	    [repository] chain (local cache first, then remotes in order)
//	         ↓
//	    [pom] reader (parent inheritance, properties, dependencyManagement)
//	         ↓
//	    [resolve] graph builder (level by level, bounded concurrency)
//	         ↓
//	    [resolve] scope filter + conflict resolution
//	         ↓
//	    [repository] materialization (atomic downloads)
//	         ↓
//	    Result (artifacts, edges, conflicts, fingerprint)
//
// # Quick Start
//
//	r := resolve.New(resolve.Options{Workers: 16})
//	res, err := r.Resolve(ctx, resolve.Request{
//	    Root:         artifact.MustParseCoordinate("com.google.guava:guava:33.0.0-jre"),
//	    Repositories: []artifact.Repository{artifact.NewRepository("https://repo.maven.apache.org/maven2")},
//	    CacheDir:     "/tmp/m2",
//	})
//
// # Main Packages
//
// ## Core Domain Logic
//
// [artifact] - Coordinates, scopes, dependencies and repositories.
//
// [pom] - POM decoding and effective dependency lists.
//
// [resolve] - Graph construction, scope filtering, conflict resolution and
// materialization.
//
// [repository] - The local cache and the ordered remote repository chain.
//
// ## Infrastructure
//
// [cache] - Descriptor cache backends (file, Redis, null).
//
// [audit] - Provenance ledger of past resolutions (JSON lines file, MongoDB).
//
// [config] - TOML configuration.
//
// [observability] - Hooks for metrics, with a Prometheus implementation.
//
// [httputil] - Retry with backoff for transient failures.
//
// ## Output
//
// [dag] and [render/nodelink] - Layered graph of a result and its Graphviz
// rendering.
package pkg
