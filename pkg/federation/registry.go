package federation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// LoaderFunc resolves a module of one remote to a component value.
type LoaderFunc func(ctx context.Context, module string) (any, error)

// Registry maps remote names to loaders. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]LoaderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]LoaderFunc)}
}

// Register adds or replaces the loader of a remote. A nil loader unregisters it.
func (r *Registry) Register(name string, fn LoaderFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		delete(r.loaders, name)
		return
	}
	r.loaders[name] = fn
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loaders, name)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// Names returns the registered remotes in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loaders))
	for n := range r.loaders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) lookup(name string) (LoaderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.loaders[name]
	return fn, ok
}

// DefaultRemotes are the development locations of the bundled remotes.
var DefaultRemotes = map[string]string{
	"products": "http://localhost:3001",
	"basket":   "http://localhost:3002",
}

// RegistryFile is the YAML layout read by LoadRegistryFile:
//
//	remotes:
//	  products: http://localhost:3001
//	  basket: http://localhost:3002
type RegistryFile struct {
	Remotes map[string]string `yaml:"remotes"`
}

// RegisterHTTP registers an HTTPRemote for every name to base URL pair.
func (r *Registry) RegisterHTTP(remotes map[string]string, client *http.Client) {
	for name, base := range remotes {
		r.Register(name, HTTPRemote(base, client))
	}
}

// LoadRegistryFile reads a registry file and registers its remotes over HTTP.
func (r *Registry) LoadRegistryFile(path string, client *http.Client) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrInvalidRegistry, err)
	}
	var f RegistryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return errors.Join(ErrInvalidRegistry, err)
	}
	for name, base := range f.Remotes {
		if name == "" || base == "" {
			return fmt.Errorf("%w: empty entry %q: %q", ErrInvalidRegistry, name, base)
		}
	}
	r.RegisterHTTP(f.Remotes, client)
	return nil
}
