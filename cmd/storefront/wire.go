package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/authstore"
	"github.com/dmitrymomot/storefront/pkg/cart"
	"github.com/dmitrymomot/storefront/pkg/guest"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/metrics"
)

// client is one storefront identity with every service wired to it.
type client struct {
	cfg      Config
	log      *slog.Logger
	kv       kvstore.Store
	store    *authstore.Store
	api      *api.Client
	guest    *guest.Bootstrapper
	session  *authsession.Controller
	cart     *cart.Synchronizer
	metrics  *metrics.Collector
	registry *prometheus.Registry
	checks   []httpserver.Check
	closers  []func() error
}

func newClient(ctx context.Context, cfg Config, log *slog.Logger) (*client, error) {
	c := &client{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	c.metrics = metrics.NewCollector(c.registry)

	if cfg.Redis.URL != "" {
		rs, err := kvstore.DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect state store: %w", err)
		}
		c.kv = rs
		c.closers = append(c.closers, rs.Close)
		c.checks = append(c.checks, httpserver.Check{Name: "redis", Fn: rs.Ping})
		log.DebugContext(ctx, "client state in redis", slog.String("prefix", cfg.Redis.Prefix))
	} else {
		fs, err := kvstore.OpenFileStore(cfg.StateFile, kvstore.WithMaxBytes(cfg.StateMaxSize))
		if err != nil {
			return nil, fmt.Errorf("open state file: %w", err)
		}
		c.kv = fs
		log.DebugContext(ctx, "client state in file", slog.String("path", fs.Path()))
	}

	c.store = authstore.New(c.kv, authstore.WithLogger(log))

	apiClient, err := api.New(cfg.APIURL,
		api.WithTokenSource(c.store),
		api.WithLogger(log),
		api.WithCache(cfg.APICacheSize),
	)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.api = apiClient

	c.guest = guest.New(c.store, apiClient, guest.WithLogger(log), guest.WithMetrics(c.metrics))
	c.session = authsession.New(c.store, apiClient, authsession.WithLogger(log), authsession.WithMetrics(c.metrics))
	c.cart = cart.New(apiClient, c.kv, cart.WithLogger(log), cart.WithMetrics(c.metrics))
	c.closers = append(c.closers, c.cart.Close, c.session.Close)
	return c, nil
}

// loadCart makes sure a guest identity exists and reads the server cart,
// falling back to the local copy.
func (c *client) loadCart(ctx context.Context) {
	if _, err := c.guest.EnsureGuestToken(ctx); err != nil {
		c.log.WarnContext(ctx, "guest bootstrap failed", logger.Error(err))
	}
	c.session.Init(ctx)
	c.cart.Restore(ctx)
	if err := c.cart.Refresh(ctx); err != nil {
		c.log.WarnContext(ctx, "showing local cart copy", logger.Error(err))
	}
}

// Close releases services in reverse construction order.
func (c *client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
