// Package authstore keeps the client session in durable storage: the user
// credential (with optional expiry), the cached user profile and the guest
// identity provisioned before login.
//
// Values are stored as strings in a kvstore.Store under the names in
// DefaultKeys. The store never surfaces storage errors; they are logged and
// the value reads as absent. Expired credentials are evicted on read.
package authstore
