package resolve

import (
	"time"

	"github.com/matzehuels/libresolve/pkg/artifact"
	errs "github.com/matzehuels/libresolve/pkg/errors"
)

// Request describes one resolution. It is single-use: every call to
// [Resolver.Resolve] builds its own per-call state from it.
type Request struct {
	Root         artifact.Coordinate   `json:"root" yaml:"root"`
	Repositories []artifact.Repository `json:"repositories" yaml:"repositories"`
	CacheDir     string                `json:"cacheDir" yaml:"cacheDir"`
}

// Validate checks the request before any I/O happens.
func (r Request) Validate() error {
	if err := r.Root.Validate(); err != nil {
		return err
	}
	if r.CacheDir == "" {
		return errs.New(errs.ErrCodeInvalidInput, "cache directory is required")
	}
	for _, repo := range r.Repositories {
		if err := errs.ValidateRepositoryURL(repo.URL); err != nil {
			return err
		}
	}
	return nil
}

// Result is the outcome of a successful resolution.
type Result struct {
	// ID identifies this resolution in logs and the provenance ledger.
	ID   string              `json:"id" yaml:"id"`
	Root artifact.Coordinate `json:"root" yaml:"root"`

	Repositories []string `json:"repositories" yaml:"repositories"`

	// Artifacts holds one entry per (groupId, artifactId, classifier), the
	// root first, in depth-first declaration order.
	Artifacts []artifact.Resolved `json:"artifacts" yaml:"artifacts"`

	// Edges links every non-root artifact to the artifact that declared it.
	Edges []Edge `json:"edges,omitempty" yaml:"edges,omitempty"`

	Conflicts []Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Skipped   []Skipped  `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	// Fingerprint is a hash of the sorted artifact coordinates. Two
	// resolutions with the same closure have the same fingerprint.
	Fingerprint string        `json:"fingerprint" yaml:"fingerprint"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// Downloaded returns the number of artifacts fetched from a remote
// repository during this resolution.
func (r *Result) Downloaded() int {
	n := 0
	for _, a := range r.Artifacts {
		if !a.Cached() {
			n++
		}
	}
	return n
}

// Edge is a dependency edge of the resolved tree.
type Edge struct {
	From  string         `json:"from" yaml:"from"`
	To    string         `json:"to" yaml:"to"`
	Scope artifact.Scope `json:"scope" yaml:"scope"`
}

// Conflict records a key that was requested in more than one version.
type Conflict struct {
	Key    string                `json:"key" yaml:"key"`
	Winner artifact.Coordinate   `json:"winner" yaml:"winner"`
	Losers []artifact.Coordinate `json:"losers" yaml:"losers"`

	// Downgrade is set when a losing request asked for a higher version
	// than the one selected.
	Downgrade bool `json:"downgrade,omitempty" yaml:"downgrade,omitempty"`
}

// Skipped is a dependency dropped, or a node left unexpanded at the
// maximum depth, in lenient mode.
type Skipped struct {
	Coordinate artifact.Coordinate `json:"coordinate" yaml:"coordinate"`
	Trail      string              `json:"trail" yaml:"trail"`
	Reason     string              `json:"reason" yaml:"reason"`
}
