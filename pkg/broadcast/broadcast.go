package broadcast

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Broadcast after Close.
var ErrClosed = errors.New("broadcast.closed")

// Message wraps data of type T for type-safe broadcasting.
type Message[T any] struct {
	Data T
}

// Subscriber receives messages from a Broadcaster.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the channel messages arrive on. It is closed when the
	// subscriber or the broadcaster is closed.
	Receive(ctx context.Context) <-chan Message[T]

	// Close releases the subscription. Close is idempotent.
	Close() error
}

// Broadcaster sends messages to multiple subscribers without blocking on
// slow consumers.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber whose lifetime is bound to ctx.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast delivers msg to all active subscribers.
	Broadcast(ctx context.Context, msg Message[T]) error

	// Close shuts down the broadcaster and closes all subscribers.
	Close() error
}

// Policy decides what happens when a subscriber buffer is full.
type Policy int

const (
	// DropSubscriber removes a subscriber that cannot keep up.
	DropSubscriber Policy = iota
	// KeepLatest discards the oldest buffered message to make room, so a
	// slow subscriber always ends up holding the newest value.
	KeepLatest
)

type subscriber[T any] struct {
	ch     chan Message[T]
	closed bool
	mu     sync.Mutex
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{
		ch: make(chan Message[T], bufferSize),
	}
}

func (s *subscriber[T]) Receive(context.Context) <-chan Message[T] {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send reports false when the subscriber is closed, or full under DropSubscriber.
func (s *subscriber[T]) send(msg Message[T], policy Policy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	for {
		select {
		case s.ch <- msg:
			return true
		default:
		}
		if policy != KeepLatest {
			return false
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
