package authsession

import "errors"

var (
	// ErrLoginFailed wraps credential rejections and backend failures of
	// login and registration.
	ErrLoginFailed = errors.New("authsession.login_failed")

	// ErrEmptyToken is recorded when the backend accepts credentials but
	// returns no token.
	ErrEmptyToken = errors.New("authsession.empty_token")

	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("authsession.not_authenticated")

	// ErrRefreshFailed wraps token refresh failures.
	ErrRefreshFailed = errors.New("authsession.refresh_failed")
)
