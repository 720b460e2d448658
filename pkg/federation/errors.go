package federation

import "errors"

var (
	// ErrRemoteNotFound is reported for a remote that is not registered.
	ErrRemoteNotFound = errors.New("federation.remote_not_found")

	// ErrModuleNotFound is reported when a remote does not expose a module.
	ErrModuleNotFound = errors.New("federation.module_not_found")

	// ErrInvalidComponent is reported when a loader yields something that
	// cannot be rendered.
	ErrInvalidComponent = errors.New("federation.invalid_component")

	// ErrRemoteUnavailable wraps transport and HTTP failures of a remote.
	ErrRemoteUnavailable = errors.New("federation.remote_unavailable")

	// ErrLoaderPanic is reported when a loader, or the component it produced,
	// panics.
	ErrLoaderPanic = errors.New("federation.loader_panic")

	// ErrReleased is returned by Render after Release.
	ErrReleased = errors.New("federation.released")

	// ErrInvalidRegistry is returned for unreadable registry files.
	ErrInvalidRegistry = errors.New("federation.invalid_registry")
)
