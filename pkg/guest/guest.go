// Package guest provisions the anonymous identity used before login.
package guest

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authstore"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/metrics"
)

var (
	// ErrProvisionFailed wraps backend failures of guest creation.
	ErrProvisionFailed = errors.New("guest.provision_failed")

	// ErrEmptyToken is returned when the backend answers without a token.
	ErrEmptyToken = errors.New("guest.empty_token")

	// ErrEmptyGuestID is returned when the backend answers without a guest id.
	ErrEmptyGuestID = errors.New("guest.empty_guest_id")
)

// Provisioner creates guest identities on the backend.
type Provisioner interface {
	CreateGuest(ctx context.Context) (*api.GuestResponse, error)
}

// Bootstrapper hands out the guest token, creating it on first use.
type Bootstrapper struct {
	store   *authstore.Store
	backend Provisioner
	group   singleflight.Group
	log     *slog.Logger
	metrics metrics.Recorder
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithLogger sets the logger for provisioning events.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bootstrapper) {
		if l != nil {
			b.log = l
		}
	}
}

// WithMetrics sets the recorder for provisioning outcomes.
func WithMetrics(r metrics.Recorder) Option {
	return func(b *Bootstrapper) {
		if r != nil {
			b.metrics = r
		}
	}
}

// New creates a Bootstrapper persisting into store.
func New(store *authstore.Store, backend Provisioner, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		store:   store,
		backend: backend,
		log:     logger.Discard(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnsureGuestToken returns the stored guest token, provisioning a new
// identity when none exists. Concurrent callers share one backend request.
func (b *Bootstrapper) EnsureGuestToken(ctx context.Context) (string, error) {
	if g := b.store.Guest(ctx); g != nil {
		b.metrics.RecordGuestProvision(metrics.OutcomeCache)
		return g.Token, nil
	}

	v, err, _ := b.group.Do("guest", func() (any, error) {
		// a caller that lost the race to the flight may arrive after it landed
		if g := b.store.Guest(ctx); g != nil {
			return g.Token, nil
		}
		return b.provision(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *Bootstrapper) provision(ctx context.Context) (string, error) {
	resp, err := b.backend.CreateGuest(ctx)
	if err != nil {
		b.metrics.RecordGuestProvision(metrics.OutcomeError)
		b.log.WarnContext(ctx, "guest provisioning failed", logger.Error(err))
		return "", errors.Join(ErrProvisionFailed, err)
	}
	if resp == nil || resp.Token == "" {
		b.metrics.RecordGuestProvision(metrics.OutcomeError)
		return "", errors.Join(ErrProvisionFailed, ErrEmptyToken)
	}
	// Guest reads an identity without an id as absent.
	if resp.GuestID == "" {
		b.metrics.RecordGuestProvision(metrics.OutcomeError)
		b.log.WarnContext(ctx, "guest response carries no guest id")
		return "", errors.Join(ErrProvisionFailed, ErrEmptyGuestID)
	}

	id := authstore.GuestIdentity{Token: resp.Token, ID: resp.GuestID.String()}
	if !b.store.StoreGuest(ctx, id) {
		// An identity written meanwhile wins; otherwise storage is failing
		// and the fresh token is still usable for this process.
		if g := b.store.Guest(ctx); g != nil {
			b.metrics.RecordGuestProvision(metrics.OutcomeCache)
			return g.Token, nil
		}
		b.log.WarnContext(ctx, "guest identity not persisted", logger.GuestID(id.ID))
	}

	b.metrics.RecordGuestProvision(metrics.OutcomeOK)
	b.log.InfoContext(ctx, "guest identity provisioned", logger.GuestID(id.ID))
	return id.Token, nil
}
