package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/storefront/pkg/federation"
	"github.com/dmitrymomot/storefront/pkg/host"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/metrics"
)

func runServe(ctx context.Context, e *env, args []string) error {
	var inProcess bool
	var mountWait time.Duration
	fs := subcommand("serve")
	fs.StringVar(&e.cfg.HTTP.Addr, "addr", e.cfg.HTTP.Addr, "listen address (STOREFRONT_ADDR)")
	fs.BoolVar(&inProcess, "in-process", false, "serve the bundled fragments without remote applications")
	fs.DurationVar(&mountWait, "mount-wait", 2*time.Second, "how long the page waits for fragments")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := e.client
	registry := federation.NewRegistry()
	switch {
	case inProcess:
		host.InProcessRemotes(registry)
	case e.cfg.RemotesFile != "":
		if err := registry.LoadRegistryFile(e.cfg.RemotesFile, http.DefaultClient); err != nil {
			return err
		}
	default:
		registry.RegisterHTTP(federation.DefaultRemotes, http.DefaultClient)
	}
	c.log.InfoContext(ctx, "remotes registered", logger.Component("federation"), slog.Any("remotes", registry.Names()))

	app := host.New(host.Deps{
		Guest:   c.guest,
		Session: c.session,
		Cart:    c.cart,
		Loader:  federation.NewLoader(registry, federation.WithLogger(c.log), federation.WithMetrics(c.metrics)),
		Catalog: c.api,
	},
		host.WithLogger(c.log),
		host.WithMetricsHandler(metrics.Handler(c.registry)),
		host.WithHealthChecks(c.checks...),
		host.WithMountWait(mountWait),
	)
	if err := app.Bootstrap(ctx); err != nil {
		c.log.WarnContext(ctx, "bootstrap degraded", logger.Error(err))
	}

	srv := httpserver.NewFromConfig(e.cfg.HTTP, httpserver.WithLogger(c.log))
	return srv.Run(ctx, app.Router())
}

func runRemote(ctx context.Context, e *env, args []string) error {
	name := host.BasketRemote
	addr := ":3002"
	fs := subcommand("remote")
	fs.StringVar(&name, "name", name, "remote name published in remoteEntry.json")
	fs.StringVar(&addr, "addr", addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logger.New(logger.WithEnvironment(e.cfg.Env, "storefront-remote"), logger.WithLevelName(e.cfg.LogLevel))
	exposer := federation.NewExposer(name, federation.WithExposerLogger(log))
	host.Expose(exposer)

	cfg := e.cfg.HTTP
	cfg.Addr = addr
	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
	return srv.Run(ctx, exposer)
}
