package authsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authstore"
	"github.com/dmitrymomot/storefront/pkg/broadcast"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/metrics"
)

// Backend is the subset of the REST API the controller drives.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, email, password, name string) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*api.User, error)
	RefreshToken(ctx context.Context) (string, error)
}

// Controller owns the authentication lifecycle of the process and publishes
// a State after every transition.
type Controller struct {
	store   *authstore.Store
	backend Backend
	log     *slog.Logger
	metrics metrics.Recorder
	bus     *broadcast.MemoryBroadcaster[State]

	mu    sync.RWMutex
	state State

	bg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for authentication events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the recorder for authentication outcomes.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.metrics = r
		}
	}
}

// New creates a Controller in the uninitialized state. Call Init before use.
func New(store *authstore.Store, backend Backend, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		backend: backend,
		log:     logger.Discard(),
		metrics: metrics.Nop{},
		bus:     broadcast.NewMemoryBroadcaster[State](1, broadcast.WithPolicy(broadcast.KeepLatest)),
		state:   State{Status: StatusUninitialized},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init derives the state from the session store. A stored token yields
// authenticated immediately; a missing profile is then fetched in the
// background.
func (c *Controller) Init(ctx context.Context) {
	token := c.store.Token(ctx)
	if token == "" {
		c.set(unauthenticated())
		return
	}

	u := c.store.User(ctx)
	c.set(authenticated(token, u))
	if u == nil {
		c.goRefreshProfile(ctx, token)
	}
}

// Login authenticates with credentials. It never returns an error: failure
// restores the previous settled state, records the cause in State.LastError
// and reports false.
func (c *Controller) Login(ctx context.Context, email, password string) bool {
	return c.authenticate(ctx, "login", func() (*api.AuthResponse, error) {
		return c.backend.Login(ctx, email, password)
	})
}

// Register creates an account and signs in with it. Same contract as Login.
func (c *Controller) Register(ctx context.Context, email, password, name string) bool {
	return c.authenticate(ctx, "register", func() (*api.AuthResponse, error) {
		return c.backend.Register(ctx, email, password, name)
	})
}

func (c *Controller) authenticate(ctx context.Context, op string, exchange func() (*api.AuthResponse, error)) bool {
	prev := c.begin()

	resp, err := exchange()
	if err == nil && (resp == nil || resp.Token == "") {
		err = ErrEmptyToken
	}
	if err != nil {
		err = errors.Join(ErrLoginFailed, err)
		c.metrics.RecordAuth(op, metrics.OutcomeError)
		c.log.InfoContext(ctx, "authentication failed", slog.String("op", op), logger.Error(err))
		prev.LastError = err
		c.set(prev)
		return false
	}

	c.store.StoreToken(ctx, resp.Token, time.Duration(resp.ExpiresIn)*time.Second)
	if resp.User != nil {
		c.store.StoreUser(ctx, resp.User)
	}
	c.set(authenticated(resp.Token, resp.User))
	c.metrics.RecordAuth(op, metrics.OutcomeOK)

	var uid any
	if resp.User != nil {
		uid = resp.User.ID
	}
	c.log.InfoContext(ctx, "authenticated", slog.String("op", op), logger.UserID(uid))

	c.goRefreshProfile(ctx, resp.Token)
	return true
}

// Logout revokes the session on the backend when possible and always clears
// the local credential and profile.
func (c *Controller) Logout(ctx context.Context) {
	c.begin()

	if err := c.backend.Logout(ctx); err != nil {
		c.log.WarnContext(ctx, "backend logout failed", logger.Error(err))
	}
	c.store.ClearAuth(ctx)
	c.set(unauthenticated())
	c.metrics.RecordAuth("logout", metrics.OutcomeOK)
}

// RefreshUser re-fetches the profile. Without a token it does nothing; a
// failed fetch logs the session out.
func (c *Controller) RefreshUser(ctx context.Context) {
	token := c.store.Token(ctx)
	if token == "" {
		return
	}

	u, err := c.backend.Me(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "profile refresh failed, logging out", logger.Error(err))
		c.Logout(ctx)
		return
	}
	c.applyProfile(ctx, token, u)
}

// RefreshToken exchanges the current token for a fresh one.
func (c *Controller) RefreshToken(ctx context.Context) error {
	if c.store.Token(ctx) == "" {
		return ErrNotAuthenticated
	}

	token, err := c.backend.RefreshToken(ctx)
	if err == nil && token == "" {
		err = ErrEmptyToken
	}
	if err != nil {
		c.metrics.RecordAuth("refresh", metrics.OutcomeError)
		return errors.Join(ErrRefreshFailed, err)
	}

	c.store.StoreToken(ctx, token, 0)
	c.mu.Lock()
	c.state.Token = token
	c.state.IsAuthenticated = true
	c.publishLocked()
	c.mu.Unlock()
	c.metrics.RecordAuth("refresh", metrics.OutcomeOK)
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Subscribe returns a subscriber that receives the current state and then
// every subsequent one. Intermediate states may be skipped by slow readers.
func (c *Controller) Subscribe(ctx context.Context) broadcast.Subscriber[State] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sub := c.bus.Subscribe(ctx)
	_ = c.bus.Broadcast(ctx, broadcast.Message[State]{Data: c.state})
	return sub
}

// Close waits for background profile fetches and closes all subscribers.
func (c *Controller) Close() error {
	c.bg.Wait()
	return c.bus.Close()
}

// begin enters authenticating and returns the settled state to fall back to.
func (c *Controller) begin() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.state
	if !prev.Status.Ready() {
		prev = unauthenticated()
	}
	prev.LastError = nil

	c.state.Status = StatusAuthenticating
	c.state.IsLoading = true
	c.publishLocked()
	return prev
}

func (c *Controller) set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	_ = c.bus.Broadcast(context.Background(), broadcast.Message[State]{Data: c.state})
}

// goRefreshProfile fetches the profile for token in the background. Failure
// is logged and never changes the state.
func (c *Controller) goRefreshProfile(ctx context.Context, token string) {
	ctx = context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		u, err := c.backend.Me(ctx)
		if err != nil {
			c.log.DebugContext(ctx, "background profile fetch failed", logger.Error(err))
			return
		}
		c.applyProfile(ctx, token, u)
	}()
}

// applyProfile stores u when the session still belongs to token.
func (c *Controller) applyProfile(ctx context.Context, token string, u *api.User) {
	if u == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Token != token || c.state.Status != StatusAuthenticated {
		return
	}
	c.store.StoreUser(ctx, u)
	c.state.User = u
	c.state.LastError = nil
	c.publishLocked()
}
