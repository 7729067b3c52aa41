// Package cache provides key/value storage for parsed dependency
// descriptors that outlives a single resolution.
//
// Descriptors of release versions never change once published, so the
// effective dependency list computed from a POM (after parent and
// property processing) can be stored and reused by later resolutions.
// Three backends are available:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI)
//   - [RedisCache]: a shared Redis instance (server deployments)
//   - [NullCache]: stores nothing
//
// Keys are produced by a [Keyer] so that different repository sets do not
// share entries:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), cache.Hash([]byte(repos))[:12]+":")
//	key := keyer.DescriptorKey("org.slf4j:slf4j-api:pom:2.0.9")
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value. A miss is reported as ok == false with
	// a nil error; err is reserved for backend failures.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// DescriptorKey returns the key for the effective descriptor of coord.
	DescriptorKey(coord string) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DescriptorKey hashes coord into a fixed-length key.
func (DefaultKeyer) DescriptorKey(coord string) string {
	return hashKey("descriptor", coord)
}
