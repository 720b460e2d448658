// Package cache provides a thread-safe LRU cache whose entries carry tags.
//
// It backs the read cache of the API client: every GET response is stored
// under its request key together with the resource tags it provides, and
// every mutation drops all entries that carry one of the tags it invalidates.
// This gives invalidate-on-write semantics: after a write the next read
// always goes back to the server.
//
//	c := cache.New[[]byte](128)
//	c.Put("GET /cart", body, "Cart")
//	c.Invalidate("Cart") // next Get("GET /cart") misses
//
// Capacity bounds memory; the least recently used entry is evicted first.
package cache
