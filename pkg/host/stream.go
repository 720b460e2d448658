package host

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/dmitrymomot/storefront/pkg/cart"
	"github.com/dmitrymomot/storefront/pkg/federation"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// IsDataStar reports whether r comes from the datastar client and expects
// server-sent events.
func IsDataStar(r *http.Request) bool {
	if r.Header.Get("Datastar-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// patchResponse sends component as a datastar element patch into selector.
type patchResponse struct {
	component templ.Component
	selector  string
}

func (p patchResponse) Render(w http.ResponseWriter, r *http.Request) error {
	sse := datastar.NewSSE(w, r)
	return sse.PatchElementTempl(p.component,
		datastar.WithSelector(p.selector),
		datastar.WithMode(datastar.ElementPatchModeInner),
	)
}

// Patch renders component into the element matching selector over SSE.
func Patch(component templ.Component, selector string) Response {
	return patchResponse{component: component, selector: selector}
}

// events streams the basket and the session to the page until the client
// goes away: every cart change patches #basket, every session change updates
// the "session" signal. Both streams start with the current state.
func (a *App) events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sse := datastar.NewSSE(w, r)

	carts := a.deps.Cart.Subscribe(ctx)
	defer carts.Close()
	sessions := a.deps.Session.Subscribe(ctx)
	defer sessions.Close()

	cartCh, sessionCh := carts.Receive(ctx), sessions.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-cartCh:
			if !ok {
				return
			}
			if err := sse.PatchElementTempl(basketView(msg.Data),
				datastar.WithSelector("#"+BasketRemote),
				datastar.WithMode(datastar.ElementPatchModeInner),
			); err != nil {
				a.log.DebugContext(ctx, "event stream closed", logger.Error(err))
				return
			}
		case msg, ok := <-sessionCh:
			if !ok {
				return
			}
			data, err := json.Marshal(map[string]any{"session": newSessionView(msg.Data)})
			if err != nil {
				a.log.ErrorContext(ctx, "session signal encode failed", logger.Error(err))
				return
			}
			if err := sse.PatchSignals(data); err != nil {
				a.log.DebugContext(ctx, "event stream closed", logger.Error(err))
				return
			}
		}
	}
}

func basketView(s cart.Summary) templ.Component {
	return BasketFragment(federation.Props{"cart": s})
}
