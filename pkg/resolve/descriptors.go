package resolve

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/cache"
	errs "github.com/matzehuels/libresolve/pkg/errors"
	"github.com/matzehuels/libresolve/pkg/observability"
)

// DescriptorSource returns the declared dependencies of an artifact.
// Failures must carry an errors code: NOT_FOUND or CORRUPT_ARTIFACT when
// the descriptor does not exist or cannot be read, TRANSIENT_FETCH when it
// could not be fetched right now. [pom.Reader] is the standard source.
type DescriptorSource interface {
	Read(ctx context.Context, c artifact.Coordinate) (*artifact.Descriptor, error)
}

type outcome int

const (
	outcomeFound outcome = iota
	outcomeNotFound
	outcomeTransient
)

type memoEntry struct {
	deps    []artifact.Dependency
	err     error
	outcome outcome
}

// descriptors memoizes descriptor lookups for one resolution. Concurrent
// lookups of the same descriptor share one fetch. Release versions are
// also kept in the persistent cache across resolutions.
type descriptors struct {
	source DescriptorSource
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger

	memo   sync.Map // descriptor coordinate -> *memoEntry
	flight singleflight.Group
}

func newDescriptors(src DescriptorSource, c cache.Cache, keyer cache.Keyer, ttl time.Duration, logger *log.Logger) *descriptors {
	return &descriptors{source: src, cache: c, keyer: keyer, ttl: ttl, logger: logger}
}

// get returns the declared dependencies of c. Every outcome except
// cancellation is memoized.
func (d *descriptors) get(ctx context.Context, c artifact.Coordinate) ([]artifact.Dependency, error) {
	key := c.POM().String()
	if v, ok := d.memo.Load(key); ok {
		e := v.(*memoEntry)
		return e.deps, e.err
	}
	v, err, _ := d.flight.Do(key, func() (any, error) {
		deps, err := d.load(ctx, c)
		if err != nil && isCancellation(err) {
			return nil, err
		}
		e := &memoEntry{deps: deps, err: err, outcome: classify(err)}
		d.memo.Store(key, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	e := v.(*memoEntry)
	return e.deps, e.err
}

func (d *descriptors) load(ctx context.Context, c artifact.Coordinate) ([]artifact.Dependency, error) {
	persistent := !c.IsSnapshot()
	var key string
	if persistent {
		key = d.keyer.DescriptorKey(c.POM().String())
		if deps, ok := d.cached(ctx, key); ok {
			return deps, nil
		}
	}

	desc, err := d.source.Read(ctx, c)
	if err != nil {
		return nil, err
	}

	if persistent {
		data, err := json.Marshal(desc.Dependencies)
		if err == nil {
			err = d.cache.Set(ctx, key, data, d.ttl)
		}
		if err != nil {
			d.logger.Debug("descriptor cache write failed", "coordinate", c.POM(), "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "descriptor", int64(len(data)))
		}
	}
	return desc.Dependencies, nil
}

func (d *descriptors) cached(ctx context.Context, key string) ([]artifact.Dependency, bool) {
	data, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.logger.Debug("descriptor cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "descriptor")
		return nil, false
	}
	var deps []artifact.Dependency
	if err := json.Unmarshal(data, &deps); err != nil {
		d.logger.Debug("discarding unreadable descriptor cache entry", "key", key, "err", err)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "descriptor")
	return deps, true
}

// stats counts memoized outcomes.
func (d *descriptors) stats() (found, notFound, transient int) {
	d.memo.Range(func(_, v any) bool {
		switch v.(*memoEntry).outcome {
		case outcomeFound:
			found++
		case outcomeNotFound:
			notFound++
		default:
			transient++
		}
		return true
	})
	return found, notFound, transient
}

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeFound
	case errs.IsNotFoundClass(err):
		return outcomeNotFound
	default:
		return outcomeTransient
	}
}
