package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) string {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/auth/guest", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"token":"guest-token","guestId":"g-9"}`)
	})
	r.Get("/products", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"id":1,"title":"Mug","price":19.99,"category":"kitchen"}]}`)
	})
	r.Get("/cart", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	r.Post("/cart", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":3,"productId":1,"quantity":2,"product":{"id":1,"title":"Mug","price":19.99}}]`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRun_Usage(t *testing.T) {
	_, err := runCLI(t)
	assert.ErrorIs(t, err, pflag.ErrHelp)

	_, err = runCLI(t, "bogus")
	assert.Error(t, err)
}

func TestRun_Products(t *testing.T) {
	base := fakeAPI(t)
	state := filepath.Join(t.TempDir(), "state.json")

	out, err := runCLI(t, "--api-url", base, "--state-file", state, "products")
	require.NoError(t, err)
	assert.Contains(t, out, "Mug")
	assert.Contains(t, out, "$19.99")
}

func TestRun_CartAndWhoami(t *testing.T) {
	base := fakeAPI(t)
	state := filepath.Join(t.TempDir(), "state.json")

	out, err := runCLI(t, "--api-url", base, "--state-file", state, "cart", "add", "--variant", "7", "-q", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "$39.98")

	out, err = runCLI(t, "--api-url", base, "--state-file", state, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "guest g-9\n", out, "guest identity persists in the state file")

	_, err = runCLI(t, "--api-url", base, "--state-file", state, "cart", "update", "3")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_LoginRequiresCredentials(t *testing.T) {
	base := fakeAPI(t)
	state := filepath.Join(t.TempDir(), "state.json")

	_, err := runCLI(t, "--api-url", base, "--state-file", state, "login", "--email", "ana@example.com")
	assert.ErrorIs(t, err, errUsage)
}
