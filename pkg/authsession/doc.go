// Package authsession runs the authentication lifecycle of a storefront
// client.
//
// A Controller moves through uninitialized, authenticating, unauthenticated
// and authenticated. Init reads the session store, Login and Register
// exchange credentials for a token, Logout always ends unauthenticated and
// RefreshUser reloads the profile. Views read Snapshot or Subscribe for
// state changes.
package authsession
