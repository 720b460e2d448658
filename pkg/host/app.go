package host

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/cart"
	"github.com/dmitrymomot/storefront/pkg/federation"
	"github.com/dmitrymomot/storefront/pkg/guest"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Catalog lists products for the page.
type Catalog interface {
	Products(ctx context.Context, limit int) ([]api.Product, error)
}

// Deps are the services the host composes. All fields are required.
type Deps struct {
	Guest   *guest.Bootstrapper
	Session *authsession.Controller
	Cart    *cart.Synchronizer
	Loader  *federation.Loader
	Catalog Catalog
}

// App is the host application. It serves one client identity.
type App struct {
	deps         Deps
	log          *slog.Logger
	metrics      http.Handler
	checks       []httpserver.Check
	mountWait    time.Duration
	productLimit int
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger for request and bootstrap diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metrics = h }
}

// WithHealthChecks adds readiness probes to /healthz.
func WithHealthChecks(checks ...httpserver.Check) Option {
	return func(a *App) { a.checks = append(a.checks, checks...) }
}

// WithMountWait bounds how long the page waits for fragments before
// rendering their loading placeholders.
func WithMountWait(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.mountWait = d
		}
	}
}

// WithProductLimit caps the catalog passed to the products fragment.
func WithProductLimit(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.productLimit = n
		}
	}
}

// New returns an App over deps.
func New(deps Deps, opts ...Option) *App {
	a := &App{
		deps:         deps,
		log:          logger.Discard(),
		mountWait:    2 * time.Second,
		productLimit: 20,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bootstrap prepares the client identity: guest token, session, cart.
// Every step runs; the returned error joins the failures, none of which is fatal.
func (a *App) Bootstrap(ctx context.Context) error {
	var errs []error
	if _, err := a.deps.Guest.EnsureGuestToken(ctx); err != nil {
		a.log.WarnContext(ctx, "guest bootstrap failed", logger.Error(err))
		errs = append(errs, err)
	}
	a.deps.Session.Init(ctx)
	a.deps.Cart.Restore(ctx)
	if err := a.deps.Cart.Refresh(ctx); err != nil {
		a.log.WarnContext(ctx, "initial cart refresh failed", logger.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Router returns the HTTP handler of the host.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, RequestID, accessLog(a.log), middleware.Recoverer)

	r.Get("/", a.handle(a.page))
	r.Get("/fragments/{remote}/*", a.handle(a.fragment))
	r.Get("/events", a.events)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", a.handle(a.session))
		r.Post("/login", a.handle(a.login))
		r.Post("/register", a.handle(a.register))
		r.Post("/logout", a.handle(a.logout))

		r.Get("/cart", a.handle(a.showCart))
		r.Post("/cart", a.handle(a.addItem))
		r.Delete("/cart", a.handle(a.clearCart))
		r.Patch("/cart/{id}", a.handle(a.updateItem))
		r.Delete("/cart/{id}", a.handle(a.removeItem))
	})

	r.Get("/healthz", httpserver.HealthCheckHandler(a.log, a.checks...))
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics)
	}
	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) Response

// handle renders the returned Response and logs render failures.
func (a *App) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := fn(w, r)
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := resp.Render(w, r); err != nil {
			a.log.ErrorContext(r.Context(), "response render failed", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}
