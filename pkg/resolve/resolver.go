package resolve

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/cache"
	errs "github.com/matzehuels/libresolve/pkg/errors"
	"github.com/matzehuels/libresolve/pkg/observability"
	"github.com/matzehuels/libresolve/pkg/pom"
	"github.com/matzehuels/libresolve/pkg/repository"
)

// Resolver computes runtime closures. It holds only immutable options;
// every call to Resolve builds its own state, so a Resolver is safe for
// concurrent use.
type Resolver struct {
	opts Options
}

// New creates a Resolver. Zero option fields take their defaults.
func New(opts Options) *Resolver {
	return &Resolver{opts: opts.WithDefaults()}
}

// Options returns the effective options.
func (r *Resolver) Options() Options { return r.opts }

// Resolve computes the runtime closure of req.Root, downloads every
// selected artifact into req.CacheDir and returns them root first.
//
// Resolution is strict: an unavailable root or non-optional transitive
// dependency fails the whole call unless Options.Lenient is set.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req.Root = req.Root.Normalize()
	repos := make([]artifact.Repository, len(req.Repositories))
	for i, repo := range req.Repositories {
		repos[i] = repo.Normalize()
	}
	req.Repositories = repos
	if err := req.Validate(); err != nil {
		return nil, err
	}

	root := req.Root.String()
	logger := r.opts.Logger.With("root", root)
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, root)

	res, err := r.resolve(ctx, req)
	if err != nil && ctx.Err() != nil && !errs.Is(err, errs.ErrCodeCancelled) {
		err = errs.Wrap(errs.ErrCodeCancelled, ctx.Err(), "resolution of %s cancelled", root).WithCoordinate(root)
	}
	elapsed := time.Since(start)
	if err != nil {
		hooks.OnResolveComplete(ctx, root, 0, elapsed, err)
		logger.Debug("resolution failed", "duration", elapsed, "err", err)
		return nil, err
	}

	res.Duration = elapsed
	for _, c := range res.Conflicts {
		hooks.OnConflict(ctx, c.Key, c.Winner.Version, len(c.Losers), c.Downgrade)
		if c.Downgrade {
			logger.Warn("version downgrade", "key", c.Key, "selected", c.Winner.Version, "requested", versions(c.Losers))
		}
	}
	hooks.OnResolveComplete(ctx, root, len(res.Artifacts), elapsed, nil)
	logger.Debug("resolved", "artifacts", len(res.Artifacts), "conflicts", len(res.Conflicts), "duration", elapsed)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, req Request) (*Result, error) {
	local, err := repository.NewLocal(req.CacheDir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "open cache %s", req.CacheDir)
	}
	chain := repository.NewChain(local, req.Repositories, repository.Options{
		HTTPClient:      r.opts.HTTPClient,
		Attempts:        r.opts.Attempts,
		RetryDelay:      r.opts.RetryDelay,
		VerifyChecksums: r.opts.VerifyChecksums,
		Logger:          r.opts.Logger,
	})

	src := r.opts.Descriptors
	if src == nil {
		src = pom.NewReader(pom.FetcherFunc(func(ctx context.Context, c artifact.Coordinate) ([]byte, error) {
			data, _, err := chain.ReadFile(ctx, c)
			return data, err
		}), r.opts.Logger)
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "repos:"+cache.Hash([]byte(strings.Join(chain.URLs(), "\n")))[:12]+":")
	descs := newDescriptors(src, r.opts.DescriptorCache, keyer, r.opts.DescriptorTTL, r.opts.Logger)

	b := newBuilder(descs, r.opts)
	g, err := b.build(ctx, req.Root)
	if err != nil {
		return nil, err
	}
	found, notFound, transient := descs.stats()
	r.opts.Logger.Debug("graph built", "nodes", len(g.Nodes), "descriptors", found, "missing", notFound, "failed", transient)

	winners, conflicts := ResolveConflicts(FilterScope(g))
	artifacts, err := r.materialize(ctx, chain, winners)
	if err != nil {
		return nil, err
	}

	return &Result{
		ID:           uuid.NewString(),
		Root:         req.Root,
		Repositories: chain.URLs(),
		Artifacts:    artifacts,
		Edges:        edges(winners),
		Conflicts:    conflicts,
		Skipped:      b.skipped,
		Fingerprint:  Fingerprint(artifacts),
	}, nil
}

// materialize downloads every winner with bounded concurrency. Output
// order follows winners. When several downloads fail, the error of the
// earliest winner is returned.
func (r *Resolver) materialize(ctx context.Context, chain *repository.Chain, winners []*Node) ([]artifact.Resolved, error) {
	out := make([]artifact.Resolved, len(winners))
	failures := make([]error, len(winners))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, n := range winners {
		g.Go(func() error {
			path, origin, err := chain.Materialize(gctx, n.Coordinate)
			if err != nil {
				failures[i] = err
				return err
			}
			out[i] = artifact.Resolved{
				Coordinate: n.Coordinate,
				Scope:      n.Selected,
				Depth:      n.Depth,
				Path:       path,
				Origin:     origin,
			}
			return nil
		})
	}
	waitErr := g.Wait()

	var cancelErr error
	for i, err := range failures {
		switch {
		case err == nil:
			continue
		case isCancellation(err):
			if cancelErr == nil {
				cancelErr = err
			}
			continue
		}
		n := winners[i]
		code := errs.GetCode(err)
		if code == "" {
			code = errs.ErrCodeInternal
		}
		if n.Depth == 0 {
			return nil, errs.Wrap(code, err, "cannot resolve root %s", n.Coordinate).WithCoordinate(n.Coordinate.String())
		}
		return nil, errs.Wrap(code, err, "cannot download %s", n.Trail()).WithCoordinate(n.Coordinate.String())
	}
	if cancelErr != nil {
		return nil, cancelErr
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return out, nil
}

// Fingerprint hashes the sorted coordinates of artifacts. It does not
// depend on output order, download origin or cache location.
func Fingerprint(artifacts []artifact.Resolved) string {
	coords := make([]string, len(artifacts))
	for i, a := range artifacts {
		coords[i] = a.Coordinate.String()
	}
	slices.Sort(coords)

	h := xxhash.New()
	for _, c := range coords {
		_, _ = h.WriteString(c)
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func edges(winners []*Node) []Edge {
	var out []Edge
	for _, n := range winners {
		if n.Parent == nil {
			continue
		}
		out = append(out, Edge{From: n.Parent.Coordinate.String(), To: n.Coordinate.String(), Scope: n.Selected})
	}
	return out
}

func versions(cs []artifact.Coordinate) string {
	vs := make([]string, len(cs))
	for i, c := range cs {
		vs[i] = c.Version
	}
	return strings.Join(vs, ",")
}
