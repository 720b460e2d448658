package federation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/federation"
)

func basketComponent(props federation.Props) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="basket">%v items</div>`, props["count"])
		return err
	})
}

func newRemote(t *testing.T) *httptest.Server {
	t.Helper()
	ex := federation.NewExposer("basket")
	ex.Expose("./Basket", basketComponent)
	srv := httptest.NewServer(ex)
	t.Cleanup(srv.Close)
	return srv
}

func TestExposer(t *testing.T) {
	srv := newRemote(t)

	resp, err := http.Get(srv.URL + "/remoteEntry.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m federation.Manifest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, "basket", m.Name)
	assert.Equal(t, "/modules/Basket", m.Exposes["./Basket"])

	resp2, err := http.Post(srv.URL+"/modules/Basket", "application/json", strings.NewReader(`{"count":3}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, _ := io.ReadAll(resp2.Body)
	assert.Equal(t, `<div class="basket">3 items</div>`, string(body))

	resp3, err := http.Post(srv.URL+"/modules/Nope", "application/json", nil)
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)

	resp4, err := http.Post(srv.URL+"/modules/Basket", "application/json", strings.NewReader(`[oops`))
	require.NoError(t, err)
	resp4.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp4.StatusCode)
}

func TestHTTPRemote(t *testing.T) {
	srv := newRemote(t)
	reg := federation.NewRegistry()
	reg.Register("basket", federation.HTTPRemote(srv.URL, srv.Client()))
	ld := federation.NewLoader(reg)
	ctx := context.Background()

	t.Run("renders with forwarded props", func(t *testing.T) {
		h := ld.Mount(ctx, "basket", "./Basket")
		require.NoError(t, h.Wait(ctx))

		var buf bytes.Buffer
		require.NoError(t, h.Render(ctx, &buf, federation.Props{"count": 2}))
		assert.Equal(t, `<div class="basket">2 items</div>`, buf.String())
	})

	t.Run("module not exposed", func(t *testing.T) {
		h := ld.Mount(ctx, "basket", "./Checkout")
		assert.ErrorIs(t, h.Wait(ctx), federation.ErrModuleNotFound)
	})

	t.Run("remote down", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		reg.Register("products", federation.HTTPRemote(dead.URL, nil))

		h := ld.Mount(ctx, "products", "./ProductsList")
		assert.ErrorIs(t, h.Wait(ctx), federation.ErrRemoteUnavailable)

		var buf bytes.Buffer
		require.NoError(t, h.Render(ctx, &buf, nil))
		assert.Contains(t, buf.String(), "Failed to load products component")
	})
}

func TestRegistry(t *testing.T) {
	reg := federation.NewRegistry()
	noop := func(context.Context, string) (any, error) { return nil, nil }

	reg.Register("products", noop)
	reg.Register("basket", noop)
	assert.Equal(t, []string{"basket", "products"}, reg.Names())
	assert.True(t, reg.Has("basket"))

	reg.Unregister("basket")
	assert.False(t, reg.Has("basket"))

	reg.Register("products", nil)
	assert.Empty(t, reg.Names())
}

func TestLoadRegistryFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("registers http remotes", func(t *testing.T) {
		srv := newRemote(t)
		path := filepath.Join(dir, "remotes.yaml")
		require.NoError(t, os.WriteFile(path, []byte("remotes:\n  basket: "+srv.URL+"\n"), 0o600))

		reg := federation.NewRegistry()
		require.NoError(t, reg.LoadRegistryFile(path, srv.Client()))
		assert.Equal(t, []string{"basket"}, reg.Names())

		h := federation.NewLoader(reg).Mount(context.Background(), "basket", "./Basket")
		assert.NoError(t, h.Wait(context.Background()))
	})

	t.Run("missing file", func(t *testing.T) {
		err := federation.NewRegistry().LoadRegistryFile(filepath.Join(dir, "nope.yaml"), nil)
		assert.ErrorIs(t, err, federation.ErrInvalidRegistry)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("remotes: [1, 2"), 0o600))
		assert.ErrorIs(t, federation.NewRegistry().LoadRegistryFile(path, nil), federation.ErrInvalidRegistry)
	})

	t.Run("empty url", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("remotes:\n  basket: \"\"\n"), 0o600))
		assert.ErrorIs(t, federation.NewRegistry().LoadRegistryFile(path, nil), federation.ErrInvalidRegistry)
	})
}
