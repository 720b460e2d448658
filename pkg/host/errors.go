package host

import "errors"

// ErrBadRequest indicates a request body or form that could not be decoded.
var ErrBadRequest = errors.New("host.bad_request")
