// Package artifact defines the value types shared by every stage of
// dependency resolution: coordinates, scopes, declared dependencies,
// repositories and resolved artifacts.
//
// # Coordinates
//
// A [Coordinate] identifies one artifact file:
//
//	c, _ := artifact.ParseCoordinate("com.google.guava:guava:33.0.0-jre")
//	c.Path()  // com/google/guava/guava/33.0.0-jre/guava-33.0.0-jre.jar
//	c.Key()   // com.google.guava:guava (version is the resolved dimension)
//
// Two coordinates that differ only by version share a [Key]; conflict
// resolution picks exactly one version per key.
//
// # Scopes
//
// A [Scope] is attached to every dependency edge. Only compile and runtime
// scoped edges propagate into a consumer's closure; see the resolve package
// for the combination rules.
//
// All types in this package are immutable values and safe to share between
// goroutines.
package artifact
