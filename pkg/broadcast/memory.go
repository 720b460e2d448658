package broadcast

import (
	"context"
	"sync"
)

// MemoryBroadcaster is an in-process Broadcaster.
// All methods are safe for concurrent use.
type MemoryBroadcaster[T any] struct {
	subscribers map[*subscriber[T]]struct{}
	bufferSize  int
	policy      Policy
	closed      bool
	mu          sync.RWMutex
}

// Option configures a MemoryBroadcaster.
type Option func(*options)

type options struct {
	policy Policy
}

// WithPolicy sets the full-buffer policy. The default is DropSubscriber.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// NewMemoryBroadcaster creates an in-memory broadcaster with a per-subscriber
// buffer of bufferSize messages (minimum 1).
func NewMemoryBroadcaster[T any](bufferSize int, opts ...Option) *MemoryBroadcaster[T] {
	o := options{policy: DropSubscriber}
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryBroadcaster[T]{
		subscribers: make(map[*subscriber[T]]struct{}),
		bufferSize:  max(bufferSize, 1),
		policy:      o.policy,
	}
}

// Subscribe creates a subscriber that is removed when ctx is cancelled.
// On a closed broadcaster it returns an already closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscriber[T](b.bufferSize)
	if b.closed {
		_ = sub.Close()
		return sub
	}
	b.subscribers[sub] = struct{}{}

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.unsubscribe(sub)
		}()
	}
	return sub
}

// Broadcast sends msg to every subscriber without blocking.
func (b *MemoryBroadcaster[T]) Broadcast(_ context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for sub := range b.subscribers {
		if !sub.send(msg, b.policy) {
			// unsubscribe takes the write lock
			go b.unsubscribe(sub)
		}
	}
	return nil
}

// Len returns the number of active subscribers.
func (b *MemoryBroadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes every subscriber. Subsequent calls are no-ops.
// Subscriptions bound to contexts that are never cancelled keep their
// cleanup goroutine until then; Close does not wait for those.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for sub := range b.subscribers {
		_ = sub.Close()
	}
	clear(b.subscribers)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroadcaster[T]) unsubscribe(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	_ = sub.Close()
}
