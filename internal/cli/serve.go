package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	promhooks "github.com/matzehuels/flowscope/pkg/observability/prometheus"
	"github.com/matzehuels/flowscope/pkg/server"
	"github.com/matzehuels/flowscope/pkg/session"
)

type serveOpts struct {
	addr      string
	store     string
	engine    string
	debounce  time.Duration
	noMetrics bool
	noCache   bool
	smart     bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve viewer sessions over HTTP and WebSocket",
		Long: `Serve viewer sessions over HTTP and WebSocket.

Clients upload a graph document to POST /api/sessions, then collapse and
expand containers through the REST API or the session's websocket. Render
updates are pushed to websocket clients after each layout. Sessions are
persisted in the configured store (memory, file, redis, mongo).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.store, "store", "", "session store: memory, file, redis, mongo (default from config)")
	cmd.Flags().StringVarP(&opts.engine, "engine", "e", "", "layout engine: layered, graphviz (default from config)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "quiet window before a relayout (default from config)")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().BoolVar(&opts.smart, "smart", false, "collapse large containers of new sessions to fit the viewport budget")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.store != "" {
		cfg.Store.Backend = opts.store
	}
	if opts.engine != "" {
		cfg.Layout.Engine = opts.engine
	}
	if opts.debounce > 0 {
		cfg.Layout.Debounce.Duration = opts.debounce
	}

	engine, err := cfg.engine(opts.noCache)
	if err != nil {
		return err
	}
	store, err := cfg.openStore(ctx)
	if err != nil {
		return err
	}
	sc := session.Config{
		Engine:    engine,
		Debounce:  cfg.Layout.Debounce.Duration,
		Constants: &cfg.Constants,
		Logger:    logger,
	}
	if opts.smart {
		sc.Policy = cfg.policy()
	}
	mgr := session.NewManager(store, sc)
	defer mgr.Close()

	var metrics http.Handler
	if cfg.Server.Metrics && !opts.noMetrics {
		metrics = newMetricsHandler()
	}

	printInfo("Serving on %s", StyleHighlight.Render("http://"+cfg.Server.Addr))
	printDetail("engine: %s, store: %s, debounce: %s", engine.Name(), cfg.Store.Backend, cfg.Layout.Debounce.Duration)
	return server.New(mgr, server.Options{Logger: logger, Metrics: metrics}).ListenAndServe(ctx, cfg.Server.Addr)
}

// newMetricsHandler registers the observability hooks on a fresh registry.
func newMetricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promhooks.NewHooks(reg).Register()
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
