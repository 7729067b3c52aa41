package pom

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/libresolve/pkg/artifact"
	errs "github.com/matzehuels/libresolve/pkg/errors"
)

// memRepo serves POMs from a map keyed by coordinate string.
type memRepo struct {
	poms    map[string]string
	fetches atomic.Int64
}

func (m *memRepo) FetchPOM(_ context.Context, c artifact.Coordinate) ([]byte, error) {
	m.fetches.Add(1)
	s, ok := m.poms[c.String()]
	if !ok {
		return nil, errs.New(errs.ErrCodeNotFound, "%s not found", c).WithCoordinate(c.String())
	}
	return []byte(s), nil
}

const parentPOM = `<?xml version="1.0" encoding="UTF-8"?>
<project>
  <groupId>org.example</groupId>
  <artifactId>parent</artifactId>
  <version>1.0</version>
  <packaging>pom</packaging>
  <properties>
    <slf4j.version>2.0.9</slf4j.version>
    <junit.version>4.13.2</junit.version>
  </properties>
  <dependencyManagement>
    <dependencies>
      <dependency>
        <groupId>org.slf4j</groupId>
        <artifactId>slf4j-api</artifactId>
        <version>${slf4j.version}</version>
      </dependency>
      <dependency>
        <groupId>commons-logging</groupId>
        <artifactId>commons-logging</artifactId>
        <version>1.2</version>
        <scope>runtime</scope>
        <exclusions>
          <exclusion><groupId>log4j</groupId><artifactId>*</artifactId></exclusion>
        </exclusions>
      </dependency>
      <dependency>
        <groupId>org.example</groupId>
        <artifactId>bom</artifactId>
        <version>1.0</version>
        <type>pom</type>
        <scope>import</scope>
      </dependency>
    </dependencies>
  </dependencyManagement>
  <dependencies>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>${junit.version}</version>
      <scope>test</scope>
    </dependency>
  </dependencies>
</project>`

const childPOM = `<project>
  <parent>
    <groupId>org.example</groupId>
    <artifactId>parent</artifactId>
    <version>1.0</version>
  </parent>
  <artifactId>app</artifactId>
  <properties>
    <slf4j.version>2.0.12</slf4j.version>
  </properties>
  <dependencies>
    <dependency>
      <groupId>org.slf4j</groupId>
      <artifactId>slf4j-api</artifactId>
    </dependency>
    <dependency>
      <groupId>commons-logging</groupId>
      <artifactId>commons-logging</artifactId>
    </dependency>
    <dependency>
      <groupId>${project.groupId}</groupId>
      <artifactId>core</artifactId>
      <version>${project.version}</version>
      <type>test-jar</type>
      <scope>test</scope>
    </dependency>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>extras</artifactId>
      <version>[1.5,2.0)</version>
      <optional>true</optional>
    </dependency>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>unversioned-optional</artifactId>
      <optional>true</optional>
    </dependency>
    <dependency>
      <groupId>org.example</groupId>
      <artifactId>unresolved-provided</artifactId>
      <version>${missing.property}</version>
      <scope>provided</scope>
    </dependency>
  </dependencies>
</project>`

func newTestRepo() *memRepo {
	return &memRepo{poms: map[string]string{
		"org.example:parent:pom:1.0": parentPOM,
		"org.example:app:pom:1.0":    childPOM,
	}}
}

func TestReadEffectiveDependencies(t *testing.T) {
	r := NewReader(newTestRepo(), nil)
	desc, err := r.Read(context.Background(), artifact.MustParseCoordinate("org.example:app:1.0"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := []struct {
		coord    string
		scope    artifact.Scope
		optional bool
	}{
		{"org.slf4j:slf4j-api:2.0.12", artifact.ScopeCompile, false},
		{"commons-logging:commons-logging:1.2", artifact.ScopeRuntime, false},
		{"org.example:core:jar:tests:1.0", artifact.ScopeTest, false},
		{"org.example:extras:1.5", artifact.ScopeCompile, true},
		{"junit:junit:4.13.2", artifact.ScopeTest, false},
	}
	if len(desc.Dependencies) != len(want) {
		t.Fatalf("got %d dependencies, want %d: %+v", len(desc.Dependencies), len(want), desc.Dependencies)
	}
	for i, w := range want {
		d := desc.Dependencies[i]
		if got := d.Coordinate.String(); got != w.coord {
			t.Errorf("dep[%d] = %s, want %s", i, got, w.coord)
		}
		if d.Scope != w.scope {
			t.Errorf("dep[%d] scope = %v, want %v", i, d.Scope, w.scope)
		}
		if d.Optional != w.optional {
			t.Errorf("dep[%d] optional = %v, want %v", i, d.Optional, w.optional)
		}
	}

	logging := desc.Dependencies[1]
	if len(logging.Exclusions) != 1 || logging.Exclusions[0] != (artifact.Exclusion{GroupID: "log4j", ArtifactID: "*"}) {
		t.Errorf("managed exclusions not applied: %+v", logging.Exclusions)
	}
}

func TestReadUnconvertibleDependency(t *testing.T) {
	tests := []struct {
		name    string
		dep     string
		corrupt bool
	}{
		{"unresolved property", `<version>${undefined.version}</version>`, true},
		{"missing version", ``, true},
		{"exclusive range", `<version>(1.0,2.0)</version>`, true},
		{"runtime scope", `<scope>runtime</scope>`, true},
		{"unknown scope", `<version>1.0</version><scope>${dep.scope}</scope>`, true},
		{"test scope", `<scope>test</scope>`, false},
		{"provided scope", `<version>${undefined.version}</version><scope>provided</scope>`, false},
		{"system scope", `<scope>system</scope>`, false},
		{"optional", `<optional>true</optional>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{poms: map[string]string{"a:b:pom:1": `<project><artifactId>b</artifactId><dependencies>
  <dependency><groupId>a</groupId><artifactId>ok</artifactId><version>1</version></dependency>
  <dependency><groupId>a</groupId><artifactId>broken</artifactId>` + tt.dep + `</dependency>
</dependencies></project>`}}
			desc, err := NewReader(repo, nil).Read(context.Background(), artifact.MustParseCoordinate("a:b:1"))
			if !tt.corrupt {
				if err != nil {
					t.Fatalf("Read() error = %v", err)
				}
				if len(desc.Dependencies) != 1 || desc.Dependencies[0].Coordinate.ArtifactID != "ok" {
					t.Errorf("dependencies = %+v", desc.Dependencies)
				}
				return
			}
			if !errs.Is(err, errs.ErrCodeCorrupt) {
				t.Fatalf("error = %v, want CORRUPT_ARTIFACT", err)
			}
			if got := errs.CoordinateOf(err); got != "a:b:1" {
				t.Errorf("coordinate = %q", got)
			}
			if !strings.Contains(err.Error(), "a:broken") {
				t.Errorf("error should name the dependency: %v", err)
			}
		})
	}
}

func TestReadFetchesSharedParentOnce(t *testing.T) {
	repo := newTestRepo()
	repo.poms["org.example:lib:pom:1.0"] = `<project>
  <parent><groupId>org.example</groupId><artifactId>parent</artifactId><version>1.0</version></parent>
  <artifactId>lib</artifactId>
</project>`
	r := NewReader(repo, nil)
	ctx := context.Background()
	for _, c := range []string{"org.example:app:1.0", "org.example:lib:1.0"} {
		if _, err := r.Read(ctx, artifact.MustParseCoordinate(c)); err != nil {
			t.Fatal(err)
		}
	}
	if got := repo.fetches.Load(); got != 3 {
		t.Errorf("fetches = %d, want 3", got)
	}
}

func TestReadMissingDescriptor(t *testing.T) {
	r := NewReader(newTestRepo(), nil)
	_, err := r.Read(context.Background(), artifact.MustParseCoordinate("org.example:absent:1.0"))
	if !errs.Is(err, errs.ErrCodeNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
}

func TestReadMissingParent(t *testing.T) {
	repo := &memRepo{poms: map[string]string{"org.example:app:pom:1.0": childPOM}}
	_, err := NewReader(repo, nil).Read(context.Background(), artifact.MustParseCoordinate("org.example:app:1.0"))
	if !errs.Is(err, errs.ErrCodeNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
	if got := errs.CoordinateOf(err); got != "org.example:app:1.0" {
		t.Errorf("coordinate = %q", got)
	}
}

func TestReadMalformed(t *testing.T) {
	repo := &memRepo{poms: map[string]string{"a:b:pom:1": "<project><dependencies>"}}
	_, err := NewReader(repo, nil).Read(context.Background(), artifact.MustParseCoordinate("a:b:1"))
	if !errs.Is(err, errs.ErrCodeCorrupt) {
		t.Fatalf("error = %v, want CORRUPT_ARTIFACT", err)
	}
}

func TestReadParentCycle(t *testing.T) {
	repo := &memRepo{poms: map[string]string{
		"a:x:pom:1": `<project><parent><groupId>a</groupId><artifactId>y</artifactId><version>1</version></parent><artifactId>x</artifactId></project>`,
		"a:y:pom:1": `<project><parent><groupId>a</groupId><artifactId>x</artifactId><version>1</version></parent><artifactId>y</artifactId></project>`,
	}}
	_, err := NewReader(repo, nil).Read(context.Background(), artifact.MustParseCoordinate("a:x:1"))
	if !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Fatalf("error = %v, want INVALID_INPUT", err)
	}
}

func TestReadUsesDescriptorWithoutClassifier(t *testing.T) {
	repo := &memRepo{poms: map[string]string{"a:b:pom:1": `<project><artifactId>b</artifactId></project>`}}
	c := artifact.MustParseCoordinate("a:b:jar:natives-linux:1")
	desc, err := NewReader(repo, nil).Read(context.Background(), c)
	if err != nil {
		t.Fatal(err)
	}
	if desc.Coordinate != c {
		t.Errorf("descriptor coordinate = %v, want %v", desc.Coordinate, c)
	}
}

func TestParseLatin1(t *testing.T) {
	data := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<project><artifactId>caf\xe9</artifactId></project>")
	p, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.ArtifactID != "café" {
		t.Errorf("ArtifactID = %q", p.ArtifactID)
	}
}

func TestInterpolate(t *testing.T) {
	props := map[string]string{"a": "${b}", "b": "value", "loop": "${loop}"}
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"${b}", "value"},
		{"${a}-suffix", "value-suffix"},
		{"${missing}", "${missing}"},
		{"${loop}", "${loop}"},
	}
	for _, tt := range tests {
		if got := interpolate(tt.in, props); got != tt.want {
			t.Errorf("interpolate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPinVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1.0", "1.0", true},
		{"[1.0]", "1.0", true},
		{"[1.0,2.0)", "1.0", true},
		{"(,1.0]", "1.0", true},
		{"[1.0,2.0),[3.0,)", "1.0", true},
		{"(1.0,)", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := pinVersion(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("pinVersion(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTypeInfo(t *testing.T) {
	tests := []struct{ typ, ext, cls string }{
		{"", "jar", ""},
		{"jar", "jar", ""},
		{"test-jar", "jar", "tests"},
		{"pom", "pom", ""},
		{"bundle", "jar", ""},
		{"war", "war", ""},
		{"java-source", "jar", "sources"},
	}
	for _, tt := range tests {
		ext, cls := typeInfo(tt.typ)
		if ext != tt.ext || cls != tt.cls {
			t.Errorf("typeInfo(%q) = %q, %q; want %q, %q", tt.typ, ext, cls, tt.ext, tt.cls)
		}
	}
}
