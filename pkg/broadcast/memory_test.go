package broadcast_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/broadcast"
)

func receive[T any](t *testing.T, sub broadcast.Subscriber[T]) (T, bool) {
	t.Helper()
	select {
	case msg, ok := <-sub.Receive(context.Background()):
		return msg.Data, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero, false
}

func TestMemoryBroadcaster_Subscribe(t *testing.T) {
	t.Run("after close returns closed subscriber", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[string](10)
		require.NoError(t, b.Close())

		sub := b.Subscribe(context.Background())
		_, ok := <-sub.Receive(context.Background())
		assert.False(t, ok)
	})

	t.Run("context cancellation unsubscribes", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[string](10)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		assert.Equal(t, 1, b.Len())

		cancel()
		require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
		_, ok := <-sub.Receive(context.Background())
		assert.False(t, ok)
	})
}

func TestMemoryBroadcaster_Broadcast(t *testing.T) {
	t.Run("fan out", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](10)
		defer b.Close()

		ctx := context.Background()
		subs := []broadcast.Subscriber[int]{b.Subscribe(ctx), b.Subscribe(ctx), b.Subscribe(ctx)}
		require.NoError(t, b.Broadcast(ctx, broadcast.Message[int]{Data: 42}))

		for _, sub := range subs {
			v, ok := receive(t, sub)
			assert.True(t, ok)
			assert.Equal(t, 42, v)
		}
	})

	t.Run("slow subscriber is dropped", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](1)
		defer b.Close()

		ctx := context.Background()
		b.Subscribe(ctx)
		require.NoError(t, b.Broadcast(ctx, broadcast.Message[int]{Data: 1}))
		require.NoError(t, b.Broadcast(ctx, broadcast.Message[int]{Data: 2}))

		require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("keep latest conflates", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](1, broadcast.WithPolicy(broadcast.KeepLatest))
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)
		for i := 1; i <= 5; i++ {
			require.NoError(t, b.Broadcast(ctx, broadcast.Message[int]{Data: i}))
		}

		v, ok := receive(t, sub)
		assert.True(t, ok)
		assert.Equal(t, 5, v)
		assert.Equal(t, 1, b.Len())
	})

	t.Run("after close", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](1)
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())
		assert.ErrorIs(t, b.Broadcast(context.Background(), broadcast.Message[int]{}), broadcast.ErrClosed)
	})

	t.Run("concurrent broadcasts", func(t *testing.T) {
		b := broadcast.NewMemoryBroadcaster[int](1, broadcast.WithPolicy(broadcast.KeepLatest))
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = b.Broadcast(ctx, broadcast.Message[int]{Data: i})
			}()
		}
		wg.Wait()

		_, ok := receive(t, sub)
		assert.True(t, ok)
	})
}

func TestSubscriber_CloseIdempotent(t *testing.T) {
	b := broadcast.NewMemoryBroadcaster[int](1)
	defer b.Close()

	sub := b.Subscribe(context.Background())
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	require.NoError(t, b.Broadcast(context.Background(), broadcast.Message[int]{Data: 1}))
	require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
}
