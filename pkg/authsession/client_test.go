package authsession_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/authstore"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
)

func TestController_WithAPIClient(t *testing.T) {
	var meHits atomic.Int32
	var revoked atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":"user-token","user":{"id":5,"email":"ana@example.com"}}`)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		meHits.Add(1)
		if revoked.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"id":5,"email":"ana@example.com","name":"Ana"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := authstore.New(kvstore.NewMemoryStore())
	client, err := api.New(srv.URL+"/api", api.WithTokenSource(store))
	require.NoError(t, err)
	c := authsession.New(store, client)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	c.Init(ctx)
	require.True(t, c.Login(ctx, "ana@example.com", "secret"))
	require.Eventually(t, func() bool {
		u := c.Snapshot().User
		return u != nil && u.Name == "Ana"
	}, time.Second, 5*time.Millisecond, "background profile fetch")

	c.RefreshUser(ctx)
	assert.Equal(t, authsession.StatusAuthenticated, c.Snapshot().Status)

	revoked.Store(true)
	before := meHits.Load()
	c.RefreshUser(ctx)
	assert.Equal(t, before+1, meHits.Load(), "profile refresh reaches the server")
	assert.Equal(t, authsession.StatusUnauthenticated, c.Snapshot().Status)
	assert.Empty(t, store.Token(ctx))
}
