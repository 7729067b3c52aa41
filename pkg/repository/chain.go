package repository

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/libresolve/pkg/artifact"
	errs "github.com/matzehuels/libresolve/pkg/errors"
	"github.com/matzehuels/libresolve/pkg/httputil"
	"github.com/matzehuels/libresolve/pkg/observability"
)

// Options configures a [Chain].
type Options struct {
	// HTTPClient is shared by every remote. Nil uses [NewHTTPClient].
	HTTPClient *http.Client

	// Attempts per repository for retryable failures (default 3).
	Attempts int

	// RetryDelay is the initial backoff delay, doubled after each attempt.
	RetryDelay time.Duration

	// VerifyChecksums fetches and compares published .sha1 files.
	VerifyChecksums bool

	// Logger receives debug output about attempts. Nil discards it.
	Logger *log.Logger
}

// WithDefaults returns a copy of o with zero fields set to their defaults.
func (o Options) WithDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = NewHTTPClient()
	}
	if o.Attempts <= 0 {
		o.Attempts = httputil.DefaultAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = httputil.DefaultDelay
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Chain fetches artifacts through the local cache and an ordered list of
// remote sources. It is safe for concurrent use.
type Chain struct {
	local   *Local
	remotes []Source
	opts    Options
	flight  singleflight.Group
}

// NewChain creates a chain over repos in priority order.
func NewChain(local *Local, repos []artifact.Repository, opts Options) *Chain {
	opts = opts.WithDefaults()
	sources := make([]Source, len(repos))
	for i, repo := range repos {
		sources[i] = NewRemote(repo, opts.HTTPClient, opts.VerifyChecksums)
	}
	return NewChainWithSources(local, sources, opts)
}

// NewChainWithSources creates a chain over arbitrary remote sources.
func NewChainWithSources(local *Local, sources []Source, opts Options) *Chain {
	return &Chain{local: local, remotes: sources, opts: opts.WithDefaults()}
}

// Local returns the cache the chain writes to.
func (c *Chain) Local() *Local { return c.local }

// URLs returns the URL of every remote, in priority order.
func (c *Chain) URLs() []string {
	out := make([]string, len(c.remotes))
	for i, s := range c.remotes {
		out[i] = s.URL()
	}
	return out
}

// Materialize ensures coord is present in the local cache and returns its
// path and origin. origin is empty when the file was already cached.
//
// Concurrent calls for the same coordinate share one download.
func (c *Chain) Materialize(ctx context.Context, coord artifact.Coordinate) (path, origin string, err error) {
	coord = coord.Normalize()
	if err := coord.Validate(); err != nil {
		return "", "", err
	}
	if err := ctx.Err(); err != nil {
		return "", "", cancelled(coord, err)
	}

	if p, ok := c.local.Lookup(coord); ok {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return p, "", nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	type located struct{ path, origin string }
	v, err, _ := c.flight.Do(coord.Path(), func() (any, error) {
		p, o, err := c.download(ctx, coord)
		return located{p, o}, err
	})
	if err != nil && errs.Is(err, errs.ErrCodeCancelled) && ctx.Err() == nil {
		// The shared download belonged to a caller that gave up.
		p, o, err := c.download(ctx, coord)
		return p, o, err
	}
	if err != nil {
		return "", "", err
	}
	l := v.(located)
	return l.path, l.origin, nil
}

// ReadFile materializes coord and returns its contents.
func (c *Chain) ReadFile(ctx context.Context, coord artifact.Coordinate) ([]byte, string, error) {
	p, origin, err := c.Materialize(ctx, coord)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", errs.Wrap(errs.ErrCodeInternal, err, "read cached %s", coord).WithCoordinate(coord.String())
	}
	return data, origin, nil
}

func (c *Chain) download(ctx context.Context, coord artifact.Coordinate) (string, string, error) {
	logger := c.opts.Logger
	var notFound, corrupt, transient int
	var last error

	for _, src := range c.remotes {
		var path string
		err := httputil.Retry(ctx, c.opts.Attempts, c.opts.RetryDelay, func(attempt int) error {
			if attempt > 1 {
				logger.Debug("retrying", "coordinate", coord, "repository", src.URL(), "attempt", attempt)
			}
			p, err := c.fetchFrom(ctx, src, coord)
			path = p
			return err
		})
		if err == nil {
			logger.Debug("downloaded", "coordinate", coord, "repository", src.URL())
			return path, src.URL(), nil
		}
		if ctx.Err() != nil {
			return "", "", cancelled(coord, ctx.Err())
		}

		switch {
		case errors.Is(err, ErrNotFound):
			notFound++
		case errors.Is(err, ErrCorrupt):
			corrupt++
			logger.Warn("corrupt download", "coordinate", coord, "repository", src.URL(), "err", err)
		case errors.Is(err, ErrNetwork):
			transient++
			logger.Debug("fetch failed", "coordinate", coord, "repository", src.URL(), "err", err)
		default:
			return "", "", errs.Wrap(errs.ErrCodeInternal, err, "store %s", coord).
				WithCoordinate(coord.String())
		}
		last = err
	}

	code := errs.ErrCodeNotFound
	msg := "%s not found in any repository"
	switch {
	case transient > 0:
		code = errs.ErrCodeTransientFetch
		msg = "%s could not be fetched"
	case corrupt > 0:
		code = errs.ErrCodeCorrupt
		msg = "%s failed integrity checks in every repository"
	case len(c.remotes) == 0:
		msg = "%s is not cached and no repositories are configured"
	}
	return "", "", errs.Wrap(code, last, msg, coord).
		WithCoordinate(coord.String()).
		WithRepositories(c.URLs())
}

func (c *Chain) fetchFrom(ctx context.Context, src Source, coord artifact.Coordinate) (string, error) {
	body, err := src.Open(ctx, coord)
	if err != nil {
		return "", err
	}
	defer body.Close()

	p, n, err := c.local.Store(ctx, coord, body)
	if errors.Is(err, ErrCorrupt) {
		return "", httputil.Retryable(err)
	}
	if err != nil {
		return "", err
	}
	observability.Cache().OnCacheSet(ctx, "artifact", n)
	return p, nil
}

func cancelled(coord artifact.Coordinate, cause error) error {
	return errs.Wrap(errs.ErrCodeCancelled, cause, "fetch %s cancelled", coord).
		WithCoordinate(coord.String())
}
