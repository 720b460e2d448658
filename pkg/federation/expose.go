package federation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

const maxPropsBytes = 1 << 20

// Exposer is the remote side: an http.Handler serving the manifest and
// rendering exposed modules.
//
//	ex := federation.NewExposer("basket")
//	ex.Expose("./Basket", views.Basket)
//	http.ListenAndServe(":3002", ex)
type Exposer struct {
	name   string
	log    *slog.Logger
	router chi.Router

	mu      sync.RWMutex
	modules map[string]ComponentFunc // by path
	exposes map[string]string        // module -> path
}

// ExposerOption configures an Exposer.
type ExposerOption func(*Exposer)

// WithExposerLogger sets the logger for served fragment failures.
func WithExposerLogger(l *slog.Logger) ExposerOption {
	return func(e *Exposer) {
		if l != nil {
			e.log = l
		}
	}
}

// NewExposer creates an Exposer for the remote called name.
func NewExposer(name string, opts ...ExposerOption) *Exposer {
	e := &Exposer{
		name:    name,
		log:     logger.Discard(),
		modules: make(map[string]ComponentFunc),
		exposes: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}

	r := chi.NewRouter()
	r.Get("/"+ManifestPath, e.manifest)
	r.Post("/modules/*", e.render)
	e.router = r
	return e
}

// Expose publishes c under module, e.g. "./Basket".
func (e *Exposer) Expose(module string, c ComponentFunc) {
	path := "/modules/" + strings.TrimLeft(strings.TrimPrefix(module, "./"), "/")

	e.mu.Lock()
	defer e.mu.Unlock()
	e.modules[path] = c
	e.exposes[module] = path
}

// Manifest returns the manifest served at ManifestPath.
func (e *Exposer) Manifest() Manifest {
	e.mu.RLock()
	defer e.mu.RUnlock()
	exposes := make(map[string]string, len(e.exposes))
	for k, v := range e.exposes {
		exposes[k] = v
	}
	return Manifest{Name: e.name, Exposes: exposes}
}

func (e *Exposer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.router.ServeHTTP(w, r)
}

func (e *Exposer) manifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(e.Manifest()); err != nil {
		e.log.WarnContext(r.Context(), "manifest encode failed", logger.Error(err))
	}
}

func (e *Exposer) render(w http.ResponseWriter, r *http.Request) {
	path := "/modules/" + chi.URLParam(r, "*")
	e.mu.RLock()
	c, ok := e.modules[path]
	e.mu.RUnlock()
	if !ok {
		http.Error(w, "module not exposed", http.StatusNotFound)
		return
	}

	props, err := decodeProps(r.Body)
	if err != nil {
		http.Error(w, "invalid props", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := c(props).Render(r.Context(), &buf); err != nil {
		e.log.ErrorContext(r.Context(), "exposed module render failed",
			logger.Remote(e.name, path), logger.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func decodeProps(body io.Reader) (Props, error) {
	props := Props{}
	err := json.NewDecoder(io.LimitReader(body, maxPropsBytes)).Decode(&props)
	if errors.Is(err, io.EOF) {
		return Props{}, nil
	}
	if props == nil {
		props = Props{}
	}
	return props, err
}
