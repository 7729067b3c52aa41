package artifact

// Wildcard matches any groupId or artifactId in an Exclusion.
const Wildcard = "*"

// Exclusion removes matching artifacts from the subtree below the
// dependency that declares it.
type Exclusion struct {
	GroupID    string `json:"groupId" yaml:"groupId"`
	ArtifactID string `json:"artifactId" yaml:"artifactId"`
}

// Matches reports whether c is excluded by e.
func (e Exclusion) Matches(c Coordinate) bool {
	return (e.GroupID == Wildcard || e.GroupID == c.GroupID) &&
		(e.ArtifactID == Wildcard || e.ArtifactID == c.ArtifactID)
}

// Dependency is a declared, directed edge from a descriptor to another
// artifact.
type Dependency struct {
	Coordinate Coordinate  `json:"coordinate" yaml:"coordinate"`
	Scope      Scope       `json:"scope" yaml:"scope"`
	Optional   bool        `json:"optional,omitempty" yaml:"optional,omitempty"`
	Exclusions []Exclusion `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
}

// Excludes reports whether any of d's exclusions matches c.
func (d Dependency) Excludes(c Coordinate) bool {
	for _, e := range d.Exclusions {
		if e.Matches(c) {
			return true
		}
	}
	return false
}

// Descriptor is the parsed declared-dependency list of one artifact.
type Descriptor struct {
	Coordinate   Coordinate   `json:"coordinate"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// Resolved is the final output unit of a resolution: the chosen coordinate,
// where it lives on disk and where it came from.
//
// Origin is the URL of the repository the file was downloaded from during
// this resolution, or empty when it was already present in the local cache.
type Resolved struct {
	Coordinate Coordinate `json:"coordinate" yaml:"coordinate"`
	Scope      Scope      `json:"scope" yaml:"scope"`
	Depth      int        `json:"depth" yaml:"depth"`
	Path       string     `json:"path" yaml:"path"`
	Origin     string     `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// Cached reports whether the artifact was served from the local cache
// without contacting a remote repository.
func (r Resolved) Cached() bool { return r.Origin == "" }
