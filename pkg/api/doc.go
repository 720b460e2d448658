// Package api is the HTTP client for the storefront REST backend.
//
// Every request is signed with the token yielded by a TokenSource: the user
// token when logged in, otherwise the guest token. GET responses are kept in a
// small LRU keyed by token, method and path and tagged by resource kind;
// mutations drop the tags they touch once they settle.
//
// Non-2xx responses are returned as *Error, which matches ErrUnauthorized,
// ErrForbidden, ErrNotFound and ErrServer through errors.Is.
package api
