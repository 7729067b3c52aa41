package artifact

import (
	"net/url"
	"strings"
)

// Repository is a remote artifact source. The position of a Repository in a
// slice is its priority: earlier entries are tried first.
type Repository struct {
	ID  string `json:"id" yaml:"id" toml:"id"`
	URL string `json:"url" yaml:"url" toml:"url"`
}

// NewRepository creates a repository whose id is derived from the URL, so
// that the same URL always yields the same id.
func NewRepository(rawURL string) Repository {
	u := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	return Repository{ID: RepositoryID(u), URL: u}
}

// RepositoryID derives a stable identifier from a repository URL:
// host and path joined with dashes, e.g. "repo1.maven.org-maven2".
func RepositoryID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return sanitizeID(rawURL)
	}
	return sanitizeID(u.Host + u.Path)
}

func sanitizeID(s string) string {
	s = strings.Trim(s, "/")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Normalize fills in a derived id and strips a trailing slash from the URL.
func (r Repository) Normalize() Repository {
	r.URL = strings.TrimRight(strings.TrimSpace(r.URL), "/")
	if r.ID == "" {
		r.ID = RepositoryID(r.URL)
	}
	return r
}

// ArtifactURL returns the absolute URL of c inside r.
func (r Repository) ArtifactURL(c Coordinate) string {
	return strings.TrimRight(r.URL, "/") + "/" + c.Path()
}

// URLs returns the URL of every repository, in order.
func URLs(repos []Repository) []string {
	out := make([]string, len(repos))
	for i, r := range repos {
		out[i] = r.URL
	}
	return out
}
