package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/cart"
	"github.com/dmitrymomot/storefront/pkg/federation"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// sessionView is the JSON shape of the session. The token is never exposed.
type sessionView struct {
	Status          authsession.Status `json:"status"`
	IsAuthenticated bool               `json:"isAuthenticated"`
	IsLoading       bool               `json:"isLoading"`
	User            *api.User          `json:"user,omitempty"`
	Error           string             `json:"error,omitempty"`
}

func newSessionView(s authsession.State) sessionView {
	v := sessionView{
		Status:          s.Status,
		IsAuthenticated: s.IsAuthenticated,
		IsLoading:       s.IsLoading,
		User:            s.User,
	}
	if s.LastError != nil {
		v.Error = s.LastError.Error()
	}
	return v
}

func (a *App) page(_ http.ResponseWriter, r *http.Request) Response {
	ctx := r.Context()

	products := a.deps.Loader.Mount(ctx, ProductsRemote, ProductsModule)
	basket := a.deps.Loader.Mount(ctx, BasketRemote, BasketModule)
	defer products.Release()
	defer basket.Release()

	waitCtx, cancel := context.WithTimeout(ctx, a.mountWait)
	_ = products.Wait(waitCtx)
	_ = basket.Wait(waitCtx)
	cancel()

	// Handles are released on return, so the page is rendered here.
	var buf bytes.Buffer
	view := layout(a.deps.Session.Snapshot(),
		mounted(products, a.props(ctx, ProductsRemote, ProductsModule)),
		mounted(basket, a.props(ctx, BasketRemote, BasketModule)),
	)
	if err := view.Render(ctx, &buf); err != nil {
		return JSONError(err)
	}
	return HTML(templ.Raw(buf.String()))
}

// mounted adapts a handle to a component rendering its current view.
func mounted(h *federation.Handle, props federation.Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return h.Render(ctx, w, props)
	})
}

// props builds the view model forwarded to a known fragment.
func (a *App) props(ctx context.Context, remote, module string) federation.Props {
	switch {
	case remote == BasketRemote && module == BasketModule:
		return federation.Props{"cart": a.deps.Cart.Snapshot()}
	case remote == ProductsRemote && module == ProductsModule:
		list, err := a.deps.Catalog.Products(ctx, a.productLimit)
		if err != nil {
			a.log.WarnContext(ctx, "catalog fetch failed", logger.Error(err))
			list = []api.Product{}
		}
		return federation.Props{"products": list}
	default:
		return federation.Props{}
	}
}

func (a *App) fragment(_ http.ResponseWriter, r *http.Request) Response {
	remote := chi.URLParam(r, "remote")
	module := "./" + strings.TrimLeft(chi.URLParam(r, "*"), "/")
	ctx := logger.ContextWithAttrs(r.Context(), logger.Remote(remote, module))

	if !a.deps.Loader.IsAvailable(remote) {
		return HTMLStatus(http.StatusNotFound, federation.ErrorView(remote))
	}

	h := a.deps.Loader.Mount(ctx, remote, module)
	defer h.Release()
	if err := h.Wait(ctx); err != nil {
		a.log.WarnContext(ctx, "fragment unavailable", logger.Error(err))
	}

	var buf bytes.Buffer
	if err := h.Render(ctx, &buf, a.props(ctx, remote, module)); err != nil {
		return JSONError(err)
	}
	if IsDataStar(r) {
		return Patch(templ.Raw(buf.String()), "#"+remote)
	}

	status := http.StatusOK
	if h.Status() == federation.StatusError {
		status = http.StatusBadGateway
	}
	return HTMLStatus(status, templ.Raw(buf.String()))
}

func (a *App) session(_ http.ResponseWriter, _ *http.Request) Response {
	return JSON(newSessionView(a.deps.Session.Snapshot()))
}

func (a *App) login(w http.ResponseWriter, r *http.Request) Response {
	var req credentialsRequest
	if err := bind(w, r, &req); err != nil {
		return JSONError(err)
	}
	req = req.normalized()
	if req.Email == "" || req.Password == "" {
		return JSONError(fmt.Errorf("%w: email and password are required", ErrBadRequest))
	}
	return a.afterAuth(r.Context(), a.deps.Session.Login(r.Context(), req.Email, req.Password))
}

func (a *App) register(w http.ResponseWriter, r *http.Request) Response {
	var req credentialsRequest
	if err := bind(w, r, &req); err != nil {
		return JSONError(err)
	}
	req = req.normalized()
	if req.Email == "" || req.Password == "" {
		return JSONError(fmt.Errorf("%w: email and password are required", ErrBadRequest))
	}
	return a.afterAuth(r.Context(), a.deps.Session.Register(r.Context(), req.Email, req.Password, req.Name))
}

// afterAuth re-reads the cart under the new identity and reports the session.
func (a *App) afterAuth(ctx context.Context, ok bool) Response {
	state := a.deps.Session.Snapshot()
	if !ok {
		err := state.LastError
		if err == nil {
			err = authsession.ErrLoginFailed
		}
		return JSONError(err)
	}
	a.refreshCart(ctx)
	return JSON(newSessionView(state))
}

func (a *App) logout(_ http.ResponseWriter, r *http.Request) Response {
	a.deps.Session.Logout(r.Context())
	a.refreshCart(r.Context())
	return JSON(newSessionView(a.deps.Session.Snapshot()))
}

func (a *App) refreshCart(ctx context.Context) {
	if err := a.deps.Cart.Refresh(ctx); err != nil {
		a.log.WarnContext(ctx, "cart refresh after identity change failed", logger.Error(err))
	}
}

func (a *App) showCart(_ http.ResponseWriter, r *http.Request) Response {
	if r.URL.Query().Has("refresh") {
		if err := a.deps.Cart.Refresh(r.Context()); err != nil {
			return JSON(a.deps.Cart.Snapshot(), WithMeta("stale", true))
		}
	}
	return JSON(a.deps.Cart.Snapshot())
}

func (a *App) addItem(w http.ResponseWriter, r *http.Request) Response {
	req := addItemRequest{Quantity: 1}
	if err := bind(w, r, &req); err != nil {
		return JSONError(err)
	}
	if err := a.deps.Cart.AddItem(r.Context(), req.VariantID, req.Quantity); err != nil {
		return JSONError(err)
	}
	return JSON(a.deps.Cart.Snapshot(), WithStatus(http.StatusCreated))
}

func (a *App) updateItem(w http.ResponseWriter, r *http.Request) Response {
	var req quantityRequest
	if err := bind(w, r, &req); err != nil {
		return JSONError(err)
	}
	id := api.ID(chi.URLParam(r, "id"))
	if err := a.deps.Cart.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		return JSONError(err)
	}
	return JSON(a.deps.Cart.Snapshot())
}

func (a *App) removeItem(_ http.ResponseWriter, r *http.Request) Response {
	id := api.ID(chi.URLParam(r, "id"))
	if err := a.deps.Cart.RemoveItem(r.Context(), id); err != nil {
		return JSONError(err)
	}
	return JSON(a.deps.Cart.Snapshot())
}

func (a *App) clearCart(_ http.ResponseWriter, r *http.Request) Response {
	err := a.deps.Cart.ClearCart(r.Context())
	switch {
	case errors.Is(err, cart.ErrClearFallback):
		return JSON(a.deps.Cart.Snapshot(), WithMeta("clearedLocally", true))
	case err != nil:
		return JSONError(err)
	}
	return JSON(a.deps.Cart.Snapshot())
}
