package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/audit"
	errs "github.com/matzehuels/libresolve/pkg/errors"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

// resolveOpts holds the command-line flags for the resolve command.
type resolveOpts struct {
	repositories []string // repository URLs, overriding the configuration
	cacheDir     string   // artifact cache directory, overriding the configuration
	format       string   // text, json, yaml, dot or svg
	file         string   // write the result here instead of stdout
	workers      int      // download and descriptor workers
	detailed     bool     // detailed node labels for dot/svg
	lenient      bool     // skip unavailable transitive dependencies
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := resolveOpts{format: formatText}

	cmd := &cobra.Command{
		Use:   "resolve <groupId:artifactId[:extension[:classifier]]:version>",
		Short: "Resolve and download the runtime closure of an artifact",
		Long: `Resolve computes the compile and runtime dependency closure of an artifact,
keeps the version nearest to the root for every library and downloads each
selected artifact into the local cache. Artifacts already in the cache are
never downloaded again.`,
		Example: `  libresolve resolve com.google.guava:guava:33.0.0-jre
  libresolve resolve org.slf4j:slf4j-simple:2.0.12 -o json
  libresolve resolve org.example:app:1.0 -r https://repo.example.com/maven2 -r https://repo.maven.apache.org/maven2
  libresolve resolve org.example:app:1.0 -o svg -f deps.svg`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeCachedCoordinates,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(opts.format); err != nil {
				return err
			}
			return c.runResolve(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.repositories, "repository", "r", nil, "repository URL, in priority order (repeatable)")
	cmd.Flags().StringVar(&opts.cacheDir, "cache", "", "artifact cache directory (overrides config and LIBRESOLVE_CACHE_DIR)")
	cmd.Flags().StringVarP(&opts.format, "output", "o", opts.format, "output format: text, json, yaml, dot, svg")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "write the result to a file instead of stdout")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "number of concurrent fetches (default from config)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show depth, scope and origin in dot/svg labels")
	cmd.Flags().BoolVar(&opts.lenient, "lenient", false, "skip unavailable transitive dependencies instead of failing")

	return cmd
}

func (c *CLI) runResolve(ctx context.Context, stdout io.Writer, coord string, opts resolveOpts) error {
	root, err := artifact.ParseCoordinate(coord)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidCoordinate, err, "invalid coordinate")
	}
	req := c.request(root, opts)
	if opts.lenient {
		c.cfg.Resolve.Lenient = true
	}

	r, closeCache := c.newResolver(ctx, opts.workers)
	defer closeCache()
	ledger := c.openAudit(ctx)
	defer ledger.Close()

	prog := newProgress(c.Logger)
	var spinner *Spinner
	if c.Logger.GetLevel() > log.DebugLevel {
		spinner = newSpinnerWithContext(ctx, "Resolving "+root.String()+"...")
		spinner.Start()
	}

	start := time.Now()
	res, err := r.Resolve(ctx, req)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		c.appendAudit(ctx, ledger, audit.FromFailure(uuid.NewString(), req, time.Since(start), err))
		return err
	}
	c.appendAudit(ctx, ledger, audit.FromResult(res))
	prog.done(fmt.Sprintf("Resolved %d artifacts", len(res.Artifacts)))

	if err := c.emit(ctx, stdout, res, opts); err != nil {
		return err
	}

	printSuccess("Resolved %s", StyleTitle.Render(root.String()))
	printStats(len(res.Artifacts), res.Downloaded(), len(res.Conflicts))
	for _, cf := range res.Conflicts {
		if cf.Downgrade {
			printWarning("%s: selected %s over %s", cf.Key, cf.Winner.Version, joinVersions(cf.Losers))
		}
	}
	for _, s := range res.Skipped {
		printWarning("skipped %s: %s", s.Coordinate, s.Reason)
		printDetail("%s", s.Trail)
	}
	printDetail("fingerprint %s · %s", res.Fingerprint, res.Duration.Round(time.Millisecond))
	return nil
}

// request combines the coordinate, flags and configuration.
func (c *CLI) request(root artifact.Coordinate, opts resolveOpts) resolve.Request {
	repos := c.cfg.RepositoryList()
	if len(opts.repositories) > 0 {
		repos = make([]artifact.Repository, len(opts.repositories))
		for i, u := range opts.repositories {
			repos[i] = artifact.NewRepository(u)
		}
	}
	cacheDir := c.cfg.CacheDir
	if opts.cacheDir != "" {
		cacheDir = opts.cacheDir
	}
	return resolve.Request{Root: root, Repositories: repos, CacheDir: cacheDir}
}

func (c *CLI) emit(ctx context.Context, stdout io.Writer, res *resolve.Result, opts resolveOpts) error {
	if opts.file == "" {
		return writeResult(ctx, stdout, res, opts.format, opts.detailed)
	}
	if err := os.MkdirAll(filepath.Dir(opts.file), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(opts.file)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := writeResult(ctx, f, res, opts.format, opts.detailed); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printFile(opts.file)
	return nil
}

func (c *CLI) appendAudit(ctx context.Context, store audit.Store, rec audit.Record) {
	if err := store.Append(context.WithoutCancel(ctx), rec); err != nil {
		c.Logger.Warn("audit append failed", "id", rec.ID, "err", err)
	}
}

func joinVersions(cs []artifact.Coordinate) string {
	vs := make([]string, len(cs))
	for i, c := range cs {
		vs[i] = c.Version
	}
	return strings.Join(vs, ", ")
}
