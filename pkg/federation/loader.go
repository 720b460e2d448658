package federation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/metrics"
)

// Status is the lifecycle position of a mounted module.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Loader mounts remote modules from a Registry.
type Loader struct {
	registry  *Registry
	log       *slog.Logger
	metrics   metrics.Recorder
	loading   templ.Component
	errorView func(remote string, err error) templ.Component
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger for load and render failures.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithMetrics sets the recorder for module load outcomes.
func WithMetrics(r metrics.Recorder) LoaderOption {
	return func(ld *Loader) {
		if r != nil {
			ld.metrics = r
		}
	}
}

// WithLoadingView replaces the placeholder rendered while loading.
func WithLoadingView(c templ.Component) LoaderOption {
	return func(ld *Loader) {
		if c != nil {
			ld.loading = c
		}
	}
}

// WithErrorView replaces the inline alert rendered on failure.
func WithErrorView(fn func(remote string, err error) templ.Component) LoaderOption {
	return func(ld *Loader) {
		if fn != nil {
			ld.errorView = fn
		}
	}
}

// NewLoader creates a Loader over registry.
func NewLoader(registry *Registry, opts ...LoaderOption) *Loader {
	ld := &Loader{
		registry:  registry,
		log:       logger.Discard(),
		metrics:   metrics.Nop{},
		loading:   LoadingView(),
		errorView: func(remote string, _ error) templ.Component { return ErrorView(remote) },
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// IsAvailable reports whether remote is registered.
func (ld *Loader) IsAvailable(remote string) bool {
	return ld.registry.Has(remote)
}

// Mount starts loading module from remote and returns at once. An
// unregistered remote yields a handle already in StatusError without
// invoking any loader. Every call loads afresh.
func (ld *Loader) Mount(ctx context.Context, remote, module string) *Handle {
	h := &Handle{
		remote: remote,
		module: module,
		status: StatusLoading,
		done:   make(chan struct{}),
		loader: ld,
	}

	fn, ok := ld.registry.lookup(remote)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrRemoteNotFound, remote)
		ld.log.WarnContext(ctx, "remote not registered", logger.Remote(remote, module))
		ld.metrics.RecordRemoteLoad(remote, metrics.OutcomeError, 0)
		h.settle(nil, err)
		return h
	}

	go func() {
		start := time.Now()
		comp, err := ld.load(ctx, fn, module)
		ld.metrics.RecordRemoteLoad(remote, metrics.Outcome(err), time.Since(start))
		if err != nil {
			ld.log.WarnContext(ctx, "remote module load failed",
				logger.Remote(remote, module), logger.Duration(time.Since(start)), logger.Error(err))
		}
		h.settle(comp, err)
	}()
	return h
}

// Preload resolves a module without mounting it, so a later Mount of a
// caching remote is fast. It reports the load error, if any.
func (ld *Loader) Preload(ctx context.Context, remote, module string) error {
	fn, ok := ld.registry.lookup(remote)
	if !ok {
		return fmt.Errorf("%w: %q", ErrRemoteNotFound, remote)
	}
	_, err := ld.load(ctx, fn, module)
	return err
}

func (ld *Loader) load(ctx context.Context, fn LoaderFunc, module string) (comp ComponentFunc, err error) {
	defer func() {
		if p := recover(); p != nil {
			comp, err = nil, fmt.Errorf("%w: %v", ErrLoaderPanic, p)
		}
	}()

	v, err := fn(ctx, module)
	if err != nil {
		return nil, err
	}
	return asComponent(v)
}

// Handle tracks one mount of a remote module.
type Handle struct {
	remote string
	module string
	loader *Loader

	mu       sync.RWMutex
	status   Status
	err      error
	comp     ComponentFunc
	released bool
	done     chan struct{}
}

func (h *Handle) Remote() string { return h.remote }
func (h *Handle) Module() string { return h.module }

func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Err returns the load failure once the handle is in StatusError.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Done is closed when loading settles.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until loading settles or ctx ends and returns the load error.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Render writes the current view: the loading placeholder, the inline error
// alert, or the component built from props. A component that fails to
// render, or panics, is replaced by the error alert.
func (h *Handle) Render(ctx context.Context, w io.Writer, props Props) error {
	h.mu.RLock()
	status, comp, loadErr, released := h.status, h.comp, h.err, h.released
	h.mu.RUnlock()

	if released {
		return ErrReleased
	}

	switch status {
	case StatusLoading:
		return h.loader.loading.Render(ctx, w)
	case StatusError:
		return h.loader.errorView(h.remote, loadErr).Render(ctx, w)
	}

	var buf bytes.Buffer
	if err := renderSafe(ctx, &buf, comp, props); err != nil {
		h.loader.log.WarnContext(ctx, "remote component render failed",
			logger.Remote(h.remote, h.module), logger.Error(err))
		return h.loader.errorView(h.remote, err).Render(ctx, w)
	}
	_, err := buf.WriteTo(w)
	return err
}

// renderSafe builds and renders the component, turning a panic into an error.
func renderSafe(ctx context.Context, w io.Writer, comp ComponentFunc, props Props) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrLoaderPanic, p)
		}
	}()
	return comp(props).Render(ctx, w)
}

// Component returns the loaded component, or nil until ready or after Release.
func (h *Handle) Component() ComponentFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.comp
}

// Release drops the handle's interest in the load. An in-flight load is not
// aborted; its result is discarded.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
	h.comp = nil
}

func (h *Handle) settle(comp ComponentFunc, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer close(h.done)

	if err != nil {
		h.status, h.err = StatusError, err
		return
	}
	if h.released {
		// the result is dropped but Status still reports the load settled
		h.status = StatusReady
		return
	}
	h.status, h.comp = StatusReady, comp
}

// Ready reports whether every handle is in StatusReady.
func Ready(handles ...*Handle) bool {
	for _, h := range handles {
		if h.Status() != StatusReady {
			return false
		}
	}
	return true
}
