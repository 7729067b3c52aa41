// Package audit records a provenance ledger of resolutions.
//
// Every resolution, successful or not, can be appended as a [Record]:
// which root was requested, which repositories were consulted, how many
// artifacts were selected and downloaded and the fingerprint of the
// resulting closure. The ledger answers "when did this artifact last
// resolve, and to what".
//
// Backends:
//   - file: append-only JSON Lines file, for the CLI
//   - mongo: a MongoDB collection, for the shared HTTP service
//   - null: discards records
package audit

import (
	"context"
	"time"

	"github.com/matzehuels/libresolve/pkg/artifact"
	errs "github.com/matzehuels/libresolve/pkg/errors"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

// DefaultHistoryLimit bounds History results when no limit is given.
const DefaultHistoryLimit = 50

// Record is one ledger entry.
type Record struct {
	ID           string    `json:"id" bson:"_id"`
	Root         string    `json:"root" bson:"root"`
	GroupID      string    `json:"groupId" bson:"groupId"`
	ArtifactID   string    `json:"artifactId" bson:"artifactId"`
	Version      string    `json:"version" bson:"version"`
	Repositories []string  `json:"repositories,omitempty" bson:"repositories,omitempty"`
	Artifacts    int       `json:"artifacts" bson:"artifacts"`
	Downloaded   int       `json:"downloaded" bson:"downloaded"`
	Conflicts    int       `json:"conflicts" bson:"conflicts"`
	Fingerprint  string    `json:"fingerprint,omitempty" bson:"fingerprint,omitempty"`
	Duration     int64     `json:"durationMs" bson:"durationMs"`
	ErrorCode    string    `json:"errorCode,omitempty" bson:"errorCode,omitempty"`
	Error        string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// OK reports whether the recorded resolution succeeded.
func (r Record) OK() bool { return r.ErrorCode == "" && r.Error == "" }

// FromResult builds a record for a successful resolution.
func FromResult(res *resolve.Result) Record {
	return Record{
		ID:           res.ID,
		Root:         res.Root.String(),
		GroupID:      res.Root.GroupID,
		ArtifactID:   res.Root.ArtifactID,
		Version:      res.Root.Version,
		Repositories: res.Repositories,
		Artifacts:    len(res.Artifacts),
		Downloaded:   res.Downloaded(),
		Conflicts:    len(res.Conflicts),
		Fingerprint:  res.Fingerprint,
		Duration:     res.Duration.Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
}

// FromFailure builds a record for a failed resolution.
func FromFailure(id string, req resolve.Request, d time.Duration, err error) Record {
	code := string(errs.GetCode(err))
	if code == "" {
		code = string(errs.ErrCodeInternal)
	}
	return Record{
		ID:           id,
		Root:         req.Root.String(),
		GroupID:      req.Root.GroupID,
		ArtifactID:   req.Root.ArtifactID,
		Version:      req.Root.Version,
		Repositories: artifact.URLs(req.Repositories),
		Duration:     d.Milliseconds(),
		ErrorCode:    code,
		Error:        err.Error(),
		CreatedAt:    time.Now().UTC(),
	}
}

// Store persists ledger records.
type Store interface {
	// Append adds r to the ledger.
	Append(ctx context.Context, r Record) error

	// History returns the most recent records for groupID:artifactID,
	// newest first. limit <= 0 uses DefaultHistoryLimit.
	History(ctx context.Context, groupID, artifactID string, limit int) ([]Record, error)

	// Close releases backend resources.
	Close() error
}

// NullStore discards records.
type NullStore struct{}

// NewNullStore returns a Store that records nothing.
func NewNullStore() Store { return NullStore{} }

func (NullStore) Append(context.Context, Record) error { return nil }

func (NullStore) History(context.Context, string, string, int) ([]Record, error) { return nil, nil }

func (NullStore) Close() error { return nil }

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
