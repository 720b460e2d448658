package host_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/authstore"
	"github.com/dmitrymomot/storefront/pkg/cart"
	"github.com/dmitrymomot/storefront/pkg/federation"
	"github.com/dmitrymomot/storefront/pkg/guest"
	"github.com/dmitrymomot/storefront/pkg/host"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
)

const mugJSON = `{"id":1,"title":"Mug","price":19.99,"category":"kitchen"}`

// backend is a fake storefront API keeping a single cart.
type backend struct {
	mu        sync.Mutex
	items     []map[string]any
	nextID    int
	failClear bool
	tokens    []string // bearer tokens of cart requests
}

func (b *backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/cart") {
				b.mu.Lock()
				b.tokens = append(b.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
				b.mu.Unlock()
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/auth/guest", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"token":"guest-token","guestId":"g-1"}`)
	})
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"token":"user-token","user":{"id":5,"email":"`+body.Email+`","name":"Ana"}}`)
	})
	r.Post("/auth/logout", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Get("/users/me", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":5,"email":"ana@example.com","name":"Ana"}`)
	})
	r.Get("/products", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[`+mugJSON+`]`)
	})
	r.Get("/cart", b.writeCart)
	r.Post("/cart", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			VariantID json.Number `json:"variantId"`
			Quantity  int         `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.nextID++
		b.items = append(b.items, map[string]any{
			"id":        b.nextID,
			"productId": 1,
			"variantId": body.VariantID,
			"quantity":  body.Quantity,
			"product":   json.RawMessage(mugJSON),
		})
		b.mu.Unlock()
		b.writeCart(w, r)
	})
	r.Patch("/cart/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Quantity int }
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		for _, it := range b.items {
			if strconv.Itoa(it["id"].(int)) == chi.URLParam(r, "id") {
				it["quantity"] = body.Quantity
			}
		}
		b.mu.Unlock()
		b.writeCart(w, r)
	})
	r.Delete("/cart/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		kept := b.items[:0]
		for _, it := range b.items {
			if strconv.Itoa(it["id"].(int)) != chi.URLParam(r, "id") {
				kept = append(kept, it)
			}
		}
		b.items = kept
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	r.Delete("/cart", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failClear {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		b.items = nil
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func (b *backend) writeCart(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	if items == nil {
		items = []map[string]any{}
	}
	_ = json.NewEncoder(w).Encode(items)
}

func (b *backend) lastCartToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tokens) == 0 {
		return ""
	}
	return b.tokens[len(b.tokens)-1]
}

type fixture struct {
	backend *backend
	store   *authstore.Store
	app     *host.App
	handler http.Handler
}

func setup(t *testing.T, register func(*federation.Registry)) *fixture {
	t.Helper()
	be := &backend{}
	srv := httptest.NewServer(be.routes())
	t.Cleanup(srv.Close)

	kv := kvstore.NewMemoryStore()
	store := authstore.New(kv)
	client, err := api.New(srv.URL, api.WithTokenSource(store))
	require.NoError(t, err)

	session := authsession.New(store, client)
	t.Cleanup(func() { _ = session.Close() })
	synchronizer := cart.New(client, kv)
	t.Cleanup(func() { _ = synchronizer.Close() })

	reg := federation.NewRegistry()
	host.InProcessRemotes(reg)
	if register != nil {
		register(reg)
	}

	app := host.New(host.Deps{
		Guest:   guest.New(store, client),
		Session: session,
		Cart:    synchronizer,
		Loader:  federation.NewLoader(reg),
		Catalog: client,
	})
	require.NoError(t, app.Bootstrap(context.Background()))
	return &fixture{backend: be, store: store, app: app, handler: app.Router()}
}

type envelope struct {
	Data  json.RawMessage   `json:"data"`
	Meta  map[string]any    `json:"meta"`
	Error *host.ErrorDetail `json:"error"`
}

func (f *fixture) do(t *testing.T, method, target, contentType, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func summary(t *testing.T, env envelope) cart.Summary {
	t.Helper()
	var s cart.Summary
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestBootstrap(t *testing.T) {
	f := setup(t, nil)

	g := f.store.Guest(context.Background())
	require.NotNil(t, g)
	assert.Equal(t, "guest-token", g.Token)
	assert.Equal(t, "guest-token", f.backend.lastCartToken(), "cart is read with the guest token")
}

func TestCartEndpoints(t *testing.T) {
	f := setup(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/cart", "application/json", `{"variantId":7,"quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	s := summary(t, env)
	require.Len(t, s.Items, 1)
	assert.Equal(t, 2, s.TotalItems)
	assert.InDelta(t, 39.98, s.TotalPrice, 0.001)
	id := s.Items[0].ID.String()

	rec, env = f.do(t, http.MethodPatch, "/api/cart/"+id, "application/x-www-form-urlencoded",
		url.Values{"quantity": {"3"}}.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cart.Cents(5997), summary(t, env).TotalCents)

	rec, env = f.do(t, http.MethodGet, "/api/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, summary(t, env).TotalItems)

	rec, env = f.do(t, http.MethodDelete, "/api/cart/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, summary(t, env).Items)
}

func TestCartEndpoints_RefreshReadsServer(t *testing.T) {
	f := setup(t, nil)
	f.do(t, http.MethodPost, "/api/cart", "application/json", `{"variantId":7,"quantity":1}`)

	// Another application changes the shared server cart.
	f.backend.mu.Lock()
	f.backend.items[0]["quantity"] = 4
	f.backend.mu.Unlock()

	rec, env := f.do(t, http.MethodGet, "/api/cart?refresh", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, summary(t, env).TotalItems)
	assert.Nil(t, env.Meta)
}

func TestCartEndpoints_Validation(t *testing.T) {
	f := setup(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/cart", "application/json", `{"variantId":7,"quantity":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, cart.ErrInvalidQuantity.Error(), env.Error.Code)

	rec, env = f.do(t, http.MethodPost, "/api/cart", "application/json", `{"quantity":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, host.ErrBadRequest.Error(), env.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/cart", "application/x-www-form-urlencoded", "variantId=7&quantity=many")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearCart(t *testing.T) {
	t.Run("server clear", func(t *testing.T) {
		f := setup(t, nil)
		f.do(t, http.MethodPost, "/api/cart", "application/json", `{"variantId":7}`)

		rec, env := f.do(t, http.MethodDelete, "/api/cart", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, summary(t, env).Items)
		assert.Nil(t, env.Meta)
	})

	t.Run("local fallback", func(t *testing.T) {
		f := setup(t, nil)
		f.do(t, http.MethodPost, "/api/cart", "application/json", `{"variantId":7}`)
		f.backend.mu.Lock()
		f.backend.failClear = true
		f.backend.mu.Unlock()

		rec, env := f.do(t, http.MethodDelete, "/api/cart", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, summary(t, env).Items)
		assert.Equal(t, true, env.Meta["clearedLocally"])
	})
}

func TestLoginLogout(t *testing.T) {
	f := setup(t, nil)

	rec, env := f.do(t, http.MethodPost, "/api/login", "application/json", `{"email":"ana@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, authsession.ErrLoginFailed.Error(), env.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/login", "application/json", `{"email":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/login", "application/x-www-form-urlencoded",
		url.Values{"email": {"ana@example.com"}, "password": {"secret"}}.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "user-token")
	var view map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, true, view["isAuthenticated"])
	assert.Equal(t, "user-token", f.backend.lastCartToken(), "cart is re-read with the user token")

	rec, env = f.do(t, http.MethodPost, "/api/logout", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, false, view["isAuthenticated"])
	assert.Equal(t, "guest-token", f.backend.lastCartToken())
	assert.NotNil(t, f.store.Guest(context.Background()), "logout keeps the guest identity")

	_, env = f.do(t, http.MethodGet, "/api/session", "", "")
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, string(authsession.StatusUnauthenticated), view["status"])
}

func TestPage(t *testing.T) {
	f := setup(t, nil)

	rec, _ := f.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Guest")
	assert.Contains(t, body, "Mug")
	assert.Contains(t, body, "$19.99")
	assert.Contains(t, body, "Your basket is empty.")
}

func TestPage_RemoteFailure(t *testing.T) {
	f := setup(t, func(reg *federation.Registry) {
		reg.Register(host.BasketRemote, func(context.Context, string) (any, error) {
			return nil, errors.New("connection refused")
		})
	})

	rec, _ := f.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Failed to load basket component. Please try again later.")
	assert.Contains(t, body, "Mug", "the products fragment still renders")
}

func TestFragment(t *testing.T) {
	f := setup(t, nil)
	f.do(t, http.MethodPost, "/api/cart", "application/json", `{"variantId":7,"quantity":3}`)

	rec, _ := f.do(t, http.MethodGet, "/fragments/basket/Basket", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "3 items")
	assert.Contains(t, rec.Body.String(), "$59.97")

	rec, _ = f.do(t, http.MethodGet, "/fragments/basket/Missing", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Component Load Error")

	rec, _ = f.do(t, http.MethodGet, "/fragments/unknown/Thing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	f := setup(t, nil)

	rec, _ := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(host.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(host.RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(host.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(host.RequestIDHeader, "bad id/with spaces")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id/with spaces", rec.Header().Get(host.RequestIDHeader))
}

func TestRequestIDExtractor(t *testing.T) {
	var got string
	h := host.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = host.RequestIDFromContext(r.Context())
		attr, ok := host.RequestIDExtractor()(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "request_id", attr.Key)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)

	_, ok := host.RequestIDExtractor()(context.Background())
	assert.False(t, ok)
}
