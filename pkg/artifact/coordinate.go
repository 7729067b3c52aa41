package artifact

import (
	"fmt"
	"path"
	"strings"

	errs "github.com/matzehuels/libresolve/pkg/errors"
)

// DefaultExtension is used when a coordinate does not name a file extension.
const DefaultExtension = "jar"

// Coordinate identifies a single artifact file in a repository.
//
// The zero value is not a valid coordinate; GroupID, ArtifactID and Version
// must be set. Extension defaults to "jar" when empty.
type Coordinate struct {
	GroupID    string `json:"groupId" yaml:"groupId"`
	ArtifactID string `json:"artifactId" yaml:"artifactId"`
	Version    string `json:"version" yaml:"version"`
	Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty"`
	Extension  string `json:"extension,omitempty" yaml:"extension,omitempty"`
}

// Key is the logical identity of a library: two coordinates with the same
// Key are competing versions of the same thing.
type Key struct {
	GroupID    string
	ArtifactID string
	Classifier string
}

// String renders the key as "groupId:artifactId[:classifier]".
func (k Key) String() string {
	s := k.GroupID + ":" + k.ArtifactID
	if k.Classifier != "" {
		s += ":" + k.Classifier
	}
	return s
}

// ParseCoordinate parses a Maven style coordinate string.
//
// Accepted forms:
//   - groupId:artifactId:version
//   - groupId:artifactId:extension:version
//   - groupId:artifactId:extension:classifier:version
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	var c Coordinate
	switch len(parts) {
	case 3:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}
	case 4:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Version: parts[3]}
	case 5:
		c = Coordinate{GroupID: parts[0], ArtifactID: parts[1], Extension: parts[2], Classifier: parts[3], Version: parts[4]}
	default:
		return Coordinate{}, fmt.Errorf("invalid coordinate %q (expected groupId:artifactId[:extension[:classifier]]:version)", s)
	}
	for _, p := range parts {
		if p == "" {
			return Coordinate{}, fmt.Errorf("invalid coordinate %q: empty segment", s)
		}
	}
	return c.Normalize(), nil
}

// MustParseCoordinate is like ParseCoordinate but panics on error.
func MustParseCoordinate(s string) Coordinate {
	c, err := ParseCoordinate(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalize returns a copy with surrounding whitespace trimmed and the
// default extension filled in.
func (c Coordinate) Normalize() Coordinate {
	c.GroupID = strings.TrimSpace(c.GroupID)
	c.ArtifactID = strings.TrimSpace(c.ArtifactID)
	c.Version = strings.TrimSpace(c.Version)
	c.Classifier = strings.TrimSpace(c.Classifier)
	c.Extension = strings.TrimSpace(c.Extension)
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	return c
}

// Validate checks that every field is safe to turn into a cache path.
// The returned error has code INVALID_COORDINATE.
func (c Coordinate) Validate() error {
	fields := []struct{ name, value string }{
		{"groupId", c.GroupID},
		{"artifactId", c.ArtifactID},
		{"version", c.Version},
		{"extension", c.Ext()},
	}
	if c.Classifier != "" {
		fields = append(fields, struct{ name, value string }{"classifier", c.Classifier})
	}
	for _, f := range fields {
		if err := errs.ValidateCoordinatePart(f.name, f.value); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidCoordinate, err, "invalid coordinate %s", c).
				WithCoordinate(c.String())
		}
	}
	return nil
}

// Key returns the version-less identity used for conflict resolution.
func (c Coordinate) Key() Key {
	return Key{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Classifier: c.Classifier}
}

// Ext returns the file extension, defaulting to "jar".
func (c Coordinate) Ext() string {
	if c.Extension == "" {
		return DefaultExtension
	}
	return c.Extension
}

// WithVersion returns a copy of c with the given version.
func (c Coordinate) WithVersion(v string) Coordinate {
	c.Version = v
	return c
}

// WithClassifier returns a copy of c with the given classifier.
func (c Coordinate) WithClassifier(classifier string) Coordinate {
	c.Classifier = classifier
	return c
}

// WithExtension returns a copy of c with the given extension.
func (c Coordinate) WithExtension(ext string) Coordinate {
	c.Extension = ext
	return c
}

// POM returns the coordinate of the descriptor for c. Descriptors never
// carry a classifier.
func (c Coordinate) POM() Coordinate {
	return Coordinate{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: c.Version, Extension: "pom"}
}

// IsSnapshot reports whether c refers to a mutable SNAPSHOT version.
func (c Coordinate) IsSnapshot() bool {
	return strings.HasSuffix(c.Version, "-SNAPSHOT")
}

// String renders c as groupId:artifactId[:extension[:classifier]]:version.
// The extension is omitted when it is the default and there is no classifier.
func (c Coordinate) String() string {
	var b strings.Builder
	b.WriteString(c.GroupID)
	b.WriteByte(':')
	b.WriteString(c.ArtifactID)
	switch {
	case c.Classifier != "":
		b.WriteByte(':')
		b.WriteString(c.Ext())
		b.WriteByte(':')
		b.WriteString(c.Classifier)
	case c.Ext() != DefaultExtension:
		b.WriteByte(':')
		b.WriteString(c.Ext())
	}
	b.WriteByte(':')
	b.WriteString(c.Version)
	return b.String()
}

// FileName returns artifactId-version[-classifier].extension.
func (c Coordinate) FileName() string {
	name := c.ArtifactID + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.Ext()
}

// Dir returns the repository-relative directory holding c, using forward
// slashes: groupId segments, artifactId, version.
func (c Coordinate) Dir() string {
	return path.Join(strings.ReplaceAll(c.GroupID, ".", "/"), c.ArtifactID, c.Version)
}

// Path returns the repository-relative path of the artifact file. The path
// is derived only from coordinate fields, so every process agrees on it.
func (c Coordinate) Path() string {
	return path.Join(c.Dir(), c.FileName())
}
