// Package pom reads Maven POM files into declared dependency lists.
//
// Only the parts of the POM model that change which artifacts a project
// depends on are evaluated:
//
//   - parent inheritance of properties, dependencies and dependencyManagement
//   - ${property} interpolation, including project.* built-ins
//   - dependencyManagement defaults for version, scope and exclusions
//   - dependency <type> to extension/classifier mapping (test-jar, pom, ...)
//
// Profiles, import-scoped BOMs, plugins and relocations are not evaluated.
//
// POM bytes come from a [Fetcher]; the resolver plugs in the repository
// chain so POMs are cached alongside the artifacts they describe.
//
//	r := pom.NewReader(pom.FetcherFunc(fetch), logger)
//	desc, err := r.Read(ctx, coord)
package pom
