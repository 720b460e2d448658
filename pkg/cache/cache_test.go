package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/storefront/pkg/cache"
)

func TestCache_Basic(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		c := cache.New[string](3)
		c.Put("a", "1")

		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "1", v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("miss", func(t *testing.T) {
		c := cache.New[string](3)
		v, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("replace keeps one entry", func(t *testing.T) {
		c := cache.New[string](3)
		c.Put("a", "1", "Cart")
		c.Put("a", "2", "Product")

		v, _ := c.Get("a")
		assert.Equal(t, "2", v)
		assert.Equal(t, 1, c.Len())

		// Old tag no longer points at the entry.
		assert.Equal(t, 0, c.Invalidate("Cart"))
		assert.Equal(t, 1, c.Invalidate("Product"))
	})

	t.Run("remove", func(t *testing.T) {
		c := cache.New[string](3)
		c.Put("a", "1")
		assert.True(t, c.Remove("a"))
		assert.False(t, c.Remove("a"))
	})

	t.Run("panics on non-positive capacity", func(t *testing.T) {
		assert.Panics(t, func() { cache.New[string](0) })
	})
}

func TestCache_Eviction(t *testing.T) {
	c := cache.New[int](2)
	c.Put("a", 1, "Product")
	c.Put("b", 2)

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	c := cache.New[string](10)
	c.Put("GET /cart", "[]", "Cart")
	c.Put("GET /products", "[]", "Product")
	c.Put("GET /products/1", "{}", "Product")
	c.Put("GET /orders", "[]", "Order", "Cart")

	n := c.Invalidate("Cart")
	assert.Equal(t, 2, n)

	_, ok := c.Get("GET /cart")
	assert.False(t, ok)
	_, ok = c.Get("GET /orders")
	assert.False(t, ok)
	_, ok = c.Get("GET /products")
	assert.True(t, ok)

	assert.Equal(t, 0, c.Invalidate("Unknown"))

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_Concurrent(t *testing.T) {
	c := cache.New[int](50)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			c.Put(key, n, "Cart")
			c.Get(key)
			if n%5 == 0 {
				c.Invalidate("Cart")
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 20)
}
