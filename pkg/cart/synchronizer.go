package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/broadcast"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/metrics"
)

// DefaultCacheKey is the storage entry holding the local cart copy.
const DefaultCacheKey = "cart_items"

// Backend is the subset of the REST API the synchronizer drives. FetchCart
// must read the server, never a cached copy. Mutations return the cart when
// the server sends one, nil otherwise.
type Backend interface {
	FetchCart(ctx context.Context) ([]api.CartItem, error)
	AddToCart(ctx context.Context, variantID api.ID, quantity int) ([]api.CartItem, error)
	UpdateCartItem(ctx context.Context, itemID api.ID, quantity int) ([]api.CartItem, error)
	RemoveCartItem(ctx context.Context, itemID api.ID) error
	ClearCart(ctx context.Context) error
}

// Synchronizer keeps the displayed cart in step with the server cart and
// mirrors every server read into local storage.
//
// Mutations are not serialized. A mutation response carrying the cart is
// applied the moment it arrives, so with overlapping mutations the response
// received last decides the state. The displayed cart and the local copy are
// written under one lock and never disagree.
type Synchronizer struct {
	backend  Backend
	local    kvstore.Store
	cacheKey string
	log      *slog.Logger
	metrics  metrics.Recorder
	bus      *broadcast.MemoryBroadcaster[Summary]

	mu    sync.RWMutex
	items []api.CartItem
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger for refresh and mutation failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the recorder for cart mutation outcomes.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Synchronizer) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithCacheKey overrides DefaultCacheKey.
func WithCacheKey(key string) Option {
	return func(s *Synchronizer) {
		if key != "" {
			s.cacheKey = key
		}
	}
}

// New creates a Synchronizer with an empty cart.
func New(backend Backend, local kvstore.Store, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:  backend,
		local:    local,
		cacheKey: DefaultCacheKey,
		log:      logger.Discard(),
		metrics:  metrics.Nop{},
		bus:      broadcast.NewMemoryBroadcaster[Summary](1, broadcast.WithPolicy(broadcast.KeepLatest)),
		items:    []api.CartItem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore displays the local copy without contacting the server.
func (s *Synchronizer) Restore(ctx context.Context) {
	s.setItems(s.loadLocal(ctx))
}

// Refresh reads the server cart. On success it replaces both the displayed
// cart and the local copy. On failure the local copy is displayed and the
// error is returned wrapped in ErrRefreshFailed.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	items, err := s.backend.FetchCart(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "cart refresh failed, using local copy", logger.Error(err))
		s.setItems(s.loadLocal(ctx))
		return errors.Join(ErrRefreshFailed, err)
	}
	s.apply(ctx, items)
	return nil
}

// AddItem adds quantity of a variant.
func (s *Synchronizer) AddItem(ctx context.Context, variantID api.ID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if variantID == "" {
		return ErrInvalidVariant
	}

	items, err := s.backend.AddToCart(ctx, variantID, quantity)
	s.metrics.RecordCartMutation("add", metrics.Outcome(err))
	if err != nil {
		s.log.WarnContext(ctx, "add to cart failed",
			slog.String("variant_id", variantID.String()), logger.Quantity(quantity), logger.Error(err))
		return errors.Join(ErrMutationFailed, err)
	}
	s.settle(ctx, items)
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line instead.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, itemID api.ID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}
	if itemID == "" {
		return ErrInvalidItemID
	}

	items, err := s.backend.UpdateCartItem(ctx, itemID, quantity)
	s.metrics.RecordCartMutation("update", metrics.Outcome(err))
	if err != nil {
		s.log.WarnContext(ctx, "cart update failed",
			logger.CartItem(itemID.String()), logger.Quantity(quantity), logger.Error(err))
		return errors.Join(ErrMutationFailed, err)
	}
	s.settle(ctx, items)
	return nil
}

// RemoveItem deletes a line. A line the server no longer has counts as
// removed.
func (s *Synchronizer) RemoveItem(ctx context.Context, itemID api.ID) error {
	if itemID == "" {
		return ErrInvalidItemID
	}

	err := s.backend.RemoveCartItem(ctx, itemID)
	if errors.Is(err, api.ErrNotFound) {
		err = nil
	}
	s.metrics.RecordCartMutation("remove", metrics.Outcome(err))
	if err != nil {
		s.log.WarnContext(ctx, "cart remove failed", logger.CartItem(itemID.String()), logger.Error(err))
		return errors.Join(ErrMutationFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = Without(s.items, itemID)
	s.publishLocked()
	s.saveLocal(ctx, s.items)
	return nil
}

// ClearCart empties the cart. The displayed cart and the local copy are
// emptied even when the server call fails; that failure is returned wrapped
// in ErrClearFallback.
func (s *Synchronizer) ClearCart(ctx context.Context) error {
	err := s.backend.ClearCart(ctx)
	s.metrics.RecordCartMutation("clear", metrics.Outcome(err))

	s.mu.Lock()
	s.items = []api.CartItem{}
	s.publishLocked()
	if derr := s.local.Delete(ctx, s.cacheKey); derr != nil {
		s.log.WarnContext(ctx, "local cart clear failed", logger.StorageKey(s.cacheKey), logger.Error(derr))
	}
	s.mu.Unlock()

	if err != nil {
		s.log.WarnContext(ctx, "server cart clear failed, cleared locally", logger.Error(err))
		return errors.Join(ErrClearFallback, err)
	}
	return nil
}

// Snapshot returns the current cart summary.
func (s *Synchronizer) Snapshot() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summarize(slices.Clone(s.items))
}

// Subscribe returns a subscriber that receives the current summary and
// every subsequent one.
func (s *Synchronizer) Subscribe(ctx context.Context) broadcast.Subscriber[Summary] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub := s.bus.Subscribe(ctx)
	s.publishLocked()
	return sub
}

// Close closes all subscribers.
func (s *Synchronizer) Close() error {
	return s.bus.Close()
}

// settle applies a mutation response, or reloads the cart when the server
// accepted the write without returning it.
func (s *Synchronizer) settle(ctx context.Context, items []api.CartItem) {
	if items != nil {
		s.apply(ctx, items)
		return
	}
	if err := s.Refresh(ctx); err != nil {
		s.log.WarnContext(ctx, "cart reload after mutation failed", logger.Error(err))
	}
}

// apply makes a server cart the displayed cart and the local copy.
func (s *Synchronizer) apply(ctx context.Context, items []api.CartItem) {
	items = slices.Clone(items)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.publishLocked()
	s.saveLocal(ctx, items)
}

func (s *Synchronizer) setItems(items []api.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.publishLocked()
}

func (s *Synchronizer) publishLocked() {
	_ = s.bus.Broadcast(context.Background(), broadcast.Message[Summary]{Data: Summarize(slices.Clone(s.items))})
}

// saveLocal is called with s.mu held.
func (s *Synchronizer) saveLocal(ctx context.Context, items []api.CartItem) {
	data, err := json.Marshal(items)
	if err != nil {
		s.log.WarnContext(ctx, "local cart encode failed", logger.Error(err))
		return
	}
	if err := s.local.Set(ctx, s.cacheKey, string(data)); err != nil {
		s.log.WarnContext(ctx, "local cart save failed", logger.StorageKey(s.cacheKey), logger.Error(err))
	}
}

// loadLocal reads the local copy. Missing or corrupt data is an empty cart;
// invalid lines are dropped and duplicate lines merged.
func (s *Synchronizer) loadLocal(ctx context.Context) []api.CartItem {
	raw, err := s.local.Get(ctx, s.cacheKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.log.WarnContext(ctx, "local cart read failed", logger.StorageKey(s.cacheKey), logger.Error(err))
		}
		return []api.CartItem{}
	}
	switch raw {
	case "", "undefined", "null", `"undefined"`:
		return []api.CartItem{}
	}

	var stored []api.CartItem
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.WarnContext(ctx, "local cart unreadable", logger.StorageKey(s.cacheKey), logger.Error(err))
		return []api.CartItem{}
	}

	items := []api.CartItem{}
	for _, it := range stored {
		if err := ValidateItem(it); err != nil {
			s.log.DebugContext(ctx, "dropping cached cart line", logger.CartItem(it.ID.String()), logger.Error(err))
			continue
		}
		items = Merge(items, it)
	}
	return items
}
