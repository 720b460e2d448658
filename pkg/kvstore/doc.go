// Package kvstore is the durable key-value persistence used by the storefront
// client for everything a browser would keep in local storage: credentials,
// the cached profile, the guest identity and the local cart cache.
//
// Three implementations satisfy Store:
//
//   - MemoryStore keeps values in a map; used by tests and short-lived processes.
//   - FileStore keeps a JSON object on disk and rewrites it atomically on
//     every mutation. WithMaxBytes emulates a storage quota.
//   - RedisStore keeps values in Redis under a key prefix, which lets several
//     host processes share one identity.
//
// Delete accepts several keys and removes them as one operation in every
// implementation, so callers can clear related values without exposing a
// partially cleared state.
package kvstore
