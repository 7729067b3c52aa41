package cli

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/libresolve/internal/server"
	"github.com/matzehuels/libresolve/pkg/observability"
)

// serveCommand creates the serve command, which runs the HTTP API until
// interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		allow []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolution API over HTTP",
		Long: `Serve starts an HTTP server exposing resolution, the provenance ledger,
Prometheus metrics and the local cache as a read-only Maven repository
under /maven2/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.cfg.Server.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := observability.NewPrometheus(reg)
			observability.SetResolveHooks(metrics)
			observability.SetCacheHooks(metrics)
			observability.SetHTTPHooks(metrics)
			defer observability.Reset()

			r, closeCache := c.newResolver(ctx, 0)
			defer closeCache()
			ledger := c.openAudit(ctx)
			defer ledger.Close()

			srv := server.New(server.Config{
				Resolver:     r,
				Repositories: c.cfg.RepositoryList(),
				CacheDir:     c.cfg.CacheDir,
				Audit:        ledger,
				Gatherer:     reg,
				Logger:       c.Logger,

				AllowedRepositories: append(slices.Clone(c.cfg.Server.AllowedRepositories), allow...),
			})
			printInfo("Serving on %s", StyleValue.Render(addr))
			printDetail("cache %s", c.cfg.CacheDir)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringArrayVar(&allow, "allow-repository", nil, "repository URL clients may request (repeatable, default: configured repositories)")
	return cmd
}
