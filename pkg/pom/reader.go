package pom

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/libresolve/pkg/artifact"
	errs "github.com/matzehuels/libresolve/pkg/errors"
)

// maxParentDepth bounds parent chains; real hierarchies are rarely deeper
// than five or six levels.
const maxParentDepth = 32

// Fetcher returns the raw bytes of the POM identified by c.
// c always has extension "pom" and no classifier.
type Fetcher interface {
	FetchPOM(ctx context.Context, c artifact.Coordinate) ([]byte, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, c artifact.Coordinate) ([]byte, error)

// FetchPOM calls f.
func (f FetcherFunc) FetchPOM(ctx context.Context, c artifact.Coordinate) ([]byte, error) {
	return f(ctx, c)
}

// Reader builds effective dependency lists from POMs. Parsed projects are
// memoized, so parents shared by many artifacts are fetched once per
// Reader. A Reader is safe for concurrent use.
type Reader struct {
	fetch  Fetcher
	logger *log.Logger

	projects sync.Map // coordinate string -> *Project
	flight   singleflight.Group
}

// NewReader creates a Reader over f. A nil logger discards output.
func NewReader(f Fetcher, logger *log.Logger) *Reader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Reader{fetch: f, logger: logger}
}

// Read returns the declared dependencies of c after parent inheritance,
// property interpolation and dependencyManagement defaults are applied.
//
// A compile or runtime dependency that cannot be turned into a concrete
// coordinate (missing version, unresolved property, exclusive-only version
// range) makes the descriptor CORRUPT_ARTIFACT. Such entries are skipped
// with a debug log when they are optional or in a non-propagating scope.
func (r *Reader) Read(ctx context.Context, c artifact.Coordinate) (*artifact.Descriptor, error) {
	lineage, err := r.lineage(ctx, c)
	if err != nil {
		return nil, err
	}
	props := properties(lineage)
	managed := management(lineage, props)

	desc := &artifact.Descriptor{Coordinate: c}
	for _, raw := range inherited(lineage) {
		d := interpolateDep(raw, props)
		if m, ok := managed[d.managementKey()]; ok {
			d = applyManagement(d, m)
		}
		dep, err := convert(d)
		if err != nil {
			if required(d) {
				return nil, errs.Wrap(errs.ErrCodeCorrupt, err, "malformed descriptor %s: dependency %s:%s", c.POM(), d.GroupID, d.ArtifactID).
					WithCoordinate(c.String())
			}
			r.logger.Debug("skipping dependency", "pom", c.POM(), "dependency", d.GroupID+":"+d.ArtifactID, "reason", err)
			continue
		}
		desc.Dependencies = append(desc.Dependencies, dep)
	}
	return desc, nil
}

// lineage returns the project of c followed by its ancestors.
func (r *Reader) lineage(ctx context.Context, c artifact.Coordinate) ([]*Project, error) {
	var chain []*Project
	seen := map[string]bool{}
	cur := c.POM()
	for {
		key := cur.String()
		if seen[key] {
			return nil, errs.New(errs.ErrCodeInvalidInput, "parent cycle at %s", key).WithCoordinate(c.String())
		}
		if len(chain) > maxParentDepth {
			return nil, errs.New(errs.ErrCodeInvalidInput, "parent chain of %s deeper than %d", c, maxParentDepth).
				WithCoordinate(c.String())
		}
		seen[key] = true

		p, err := r.project(ctx, cur)
		if err != nil {
			if len(chain) == 0 {
				return nil, err
			}
			code := errs.GetCode(err)
			if code == "" {
				code = errs.ErrCodeNotFound
			}
			return nil, errs.Wrap(code, err, "load parent %s of %s", cur, c).WithCoordinate(c.String())
		}
		chain = append(chain, p)

		if p.Parent == nil || p.Parent.ArtifactID == "" {
			return chain, nil
		}
		cur = artifact.Coordinate{
			GroupID:    p.Parent.GroupID,
			ArtifactID: p.Parent.ArtifactID,
			Version:    p.Parent.Version,
			Extension:  "pom",
		}
	}
}

func (r *Reader) project(ctx context.Context, c artifact.Coordinate) (*Project, error) {
	key := c.String()
	if p, ok := r.projects.Load(key); ok {
		return p.(*Project), nil
	}
	v, err, _ := r.flight.Do(key, func() (any, error) {
		data, err := r.fetch.FetchPOM(ctx, c)
		if err != nil {
			return nil, err
		}
		p, err := Parse(data)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeCorrupt, err, "malformed descriptor %s", c).WithCoordinate(c.String())
		}
		r.projects.Store(key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Project), nil
}

// properties merges <properties> from the root ancestor down to the child
// and adds the project.* built-ins for the child.
func properties(lineage []*Project) map[string]string {
	props := map[string]string{}
	for i := len(lineage) - 1; i >= 0; i-- {
		for k, v := range lineage[i].Properties {
			props[k] = v
		}
	}

	child := lineage[0]
	groupID, version := child.GroupID, child.Version
	if child.Parent != nil {
		if groupID == "" {
			groupID = child.Parent.GroupID
		}
		if version == "" {
			version = child.Parent.Version
		}
		props["project.parent.groupId"] = child.Parent.GroupID
		props["project.parent.artifactId"] = child.Parent.ArtifactID
		props["project.parent.version"] = child.Parent.Version
		props["parent.version"] = child.Parent.Version
	}
	packaging := child.Packaging
	if packaging == "" {
		packaging = "jar"
	}
	for _, prefix := range []string{"project.", "pom.", ""} {
		props[prefix+"groupId"] = groupID
		props[prefix+"artifactId"] = child.ArtifactID
		props[prefix+"version"] = version
	}
	props["project.packaging"] = packaging
	return props
}

// management merges dependencyManagement entries with the nearest
// declaration winning. Import-scoped BOM entries are ignored.
func management(lineage []*Project, props map[string]string) map[string]Dependency {
	managed := map[string]Dependency{}
	for _, p := range lineage {
		if p.DependencyManagement == nil {
			continue
		}
		for _, raw := range p.DependencyManagement.Dependencies {
			d := interpolateDep(raw, props)
			if d.Scope == "import" {
				continue
			}
			if _, ok := managed[d.managementKey()]; !ok {
				managed[d.managementKey()] = d
			}
		}
	}
	return managed
}

// inherited returns the child's dependencies followed by ancestor
// dependencies it does not redeclare.
func inherited(lineage []*Project) []Dependency {
	var out []Dependency
	seen := map[string]bool{}
	for _, p := range lineage {
		for _, d := range p.Dependencies {
			k := d.managementKey()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, d)
		}
	}
	return out
}

func applyManagement(d, m Dependency) Dependency {
	if d.Version == "" {
		d.Version = m.Version
	}
	if d.Scope == "" {
		d.Scope = m.Scope
	}
	if len(m.Exclusions) > 0 {
		d.Exclusions = append(append([]Exclusion(nil), d.Exclusions...), m.Exclusions...)
	}
	return d
}

// required reports whether d would reach a consumer's runtime classpath.
// Unknown scopes count as required.
func required(d Dependency) bool {
	if strings.EqualFold(strings.TrimSpace(d.Optional), "true") {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(d.Scope), "import") {
		return false
	}
	scope, err := artifact.ParseScope(d.Scope)
	return err != nil || scope.Propagates()
}

func convert(d Dependency) (artifact.Dependency, error) {
	if d.GroupID == "" || d.ArtifactID == "" {
		return artifact.Dependency{}, fmt.Errorf("missing groupId or artifactId")
	}
	for _, s := range []string{d.GroupID, d.ArtifactID, d.Version, d.Classifier, d.Type} {
		if strings.Contains(s, "${") {
			return artifact.Dependency{}, fmt.Errorf("unresolved property in %q", s)
		}
	}
	version, ok := pinVersion(d.Version)
	if !ok {
		return artifact.Dependency{}, fmt.Errorf("unsupported version %q", d.Version)
	}
	scope, err := artifact.ParseScope(d.Scope)
	if err != nil {
		return artifact.Dependency{}, err
	}

	ext, classifier := typeInfo(d.Type)
	if d.Classifier != "" {
		classifier = d.Classifier
	}
	dep := artifact.Dependency{
		Coordinate: artifact.Coordinate{
			GroupID:    d.GroupID,
			ArtifactID: d.ArtifactID,
			Version:    version,
			Classifier: classifier,
			Extension:  ext,
		},
		Scope:    scope,
		Optional: strings.EqualFold(d.Optional, "true"),
	}
	for _, e := range d.Exclusions {
		if e.GroupID == "" && e.ArtifactID == "" {
			continue
		}
		ex := artifact.Exclusion{GroupID: e.GroupID, ArtifactID: e.ArtifactID}
		if ex.GroupID == "" {
			ex.GroupID = artifact.Wildcard
		}
		if ex.ArtifactID == "" {
			ex.ArtifactID = artifact.Wildcard
		}
		dep.Exclusions = append(dep.Exclusions, ex)
	}
	return dep, nil
}

// typeInfo maps a dependency <type> to the file extension and implied
// classifier, following the standard artifact handlers.
func typeInfo(t string) (ext, classifier string) {
	switch t {
	case "", "jar", "maven-plugin", "ejb", "bundle":
		return "jar", ""
	case "test-jar":
		return "jar", "tests"
	case "ejb-client":
		return "jar", "client"
	case "java-source":
		return "jar", "sources"
	case "javadoc":
		return "jar", "javadoc"
	default:
		return t, ""
	}
}

// pinVersion turns a version or version range into one concrete version.
// A range resolves to its inclusive lower bound, or to its inclusive upper
// bound when there is no lower bound. Exclusive-only ranges are rejected.
func pinVersion(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	if v[0] != '[' && v[0] != '(' {
		return v, true
	}
	end := strings.IndexAny(v, "])")
	if end < 0 {
		return "", false
	}
	first := v[:end+1]
	inner := strings.TrimSpace(first[1:end])
	lower, upper, isRange := strings.Cut(inner, ",")
	lower, upper = strings.TrimSpace(lower), strings.TrimSpace(upper)
	switch {
	case !isRange && first[0] == '[' && first[end] == ']' && lower != "":
		return lower, true
	case isRange && lower != "" && first[0] == '[':
		return lower, true
	case isRange && upper != "" && first[end] == ']':
		return upper, true
	}
	return "", false
}

var propertyRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolate substitutes ${name} references. Nested references are
// expanded up to ten levels; unknown names are left in place.
func interpolate(s string, props map[string]string) string {
	for range 10 {
		if !strings.Contains(s, "${") {
			return s
		}
		next := propertyRe.ReplaceAllStringFunc(s, func(m string) string {
			if v, ok := props[m[2:len(m)-1]]; ok {
				return v
			}
			return m
		})
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func interpolateDep(d Dependency, props map[string]string) Dependency {
	d.GroupID = interpolate(d.GroupID, props)
	d.ArtifactID = interpolate(d.ArtifactID, props)
	d.Version = interpolate(d.Version, props)
	d.Type = interpolate(d.Type, props)
	d.Classifier = interpolate(d.Classifier, props)
	d.Scope = interpolate(d.Scope, props)
	d.Optional = interpolate(d.Optional, props)
	if len(d.Exclusions) > 0 {
		ex := make([]Exclusion, len(d.Exclusions))
		for i, e := range d.Exclusions {
			ex[i] = Exclusion{GroupID: interpolate(e.GroupID, props), ArtifactID: interpolate(e.ArtifactID, props)}
		}
		d.Exclusions = ex
	}
	return d
}
