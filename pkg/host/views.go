package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/cart"
	"github.com/dmitrymomot/storefront/pkg/federation"
)

// Fragment module names mounted by the page.
const (
	ProductsRemote = "products"
	ProductsModule = "./ProductsList"
	BasketRemote   = "basket"
	BasketModule   = "./Basket"
)

// htmlWriter keeps the first write error so views can write unconditionally.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) { h.raw(templ.EscapeString(s)) }

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// layout is the host page around the two mounted fragments.
func layout(session authsession.State, products, basket templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Storefront</title></head><body>`)
		h.raw(`<header class="storefront-header"><a href="/">Storefront</a><span class="session">`)
		switch {
		case session.IsAuthenticated && session.User != nil:
			h.text(displayName(session.User))
		case session.IsAuthenticated:
			h.raw("Signed in")
		default:
			h.raw("Guest")
		}
		h.raw(`</span></header><main class="storefront-main"><section id="products">`)
		h.component(ctx, products)
		h.raw(`</section><aside id="basket">`)
		h.component(ctx, basket)
		h.raw(`</aside></main></body></html>`)
		return h.err
	})
}

func displayName(u *api.User) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.FirstName != "" || u.LastName != "":
		return u.FirstName + " " + u.LastName
	default:
		return u.Email
	}
}

type basketProps struct {
	Cart cart.Summary `json:"cart"`
}

type productsProps struct {
	Products []api.Product `json:"products"`
}

// decodeProps round-trips props through JSON so in-process and HTTP mounts
// see the same shapes.
func decodeProps(props federation.Props, v any) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// BasketFragment renders the cart lines and totals from props["cart"].
// Totals are recomputed from the lines.
func BasketFragment(props federation.Props) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var p basketProps
		if err := decodeProps(props, &p); err != nil {
			return fmt.Errorf("basket props: %w", err)
		}
		summary := cart.Summarize(p.Cart.Items)

		h := &htmlWriter{w: w}
		h.raw(`<div class="basket"><h2>Basket</h2>`)
		if len(summary.Items) == 0 {
			h.raw(`<p class="basket-empty">Your basket is empty.</p></div>`)
			return h.err
		}
		h.raw(`<ul class="basket-lines">`)
		for _, it := range summary.Items {
			h.raw(`<li data-item-id="`)
			h.text(it.ID.String())
			h.raw(`"><span class="title">`)
			h.text(it.Product.Title)
			if it.Variant != nil && it.Variant.Value != "" {
				h.raw(` <small>`)
				h.text(it.Variant.Value)
				h.raw(`</small>`)
			}
			h.raw(`</span> <span class="qty">× ` + strconv.Itoa(it.Quantity) + `</span> <span class="line-total">`)
			h.text(cart.FormatPrice(cart.LineTotal(it)))
			h.raw(`</span></li>`)
		}
		h.raw(`</ul><p class="basket-total"><span class="count">` + itemsLabel(summary.TotalItems) + `</span> <strong>`)
		h.text(cart.FormatPrice(summary.TotalCents))
		h.raw(`</strong></p></div>`)
		return h.err
	})
}

func itemsLabel(n int) string {
	if n == 1 {
		return "1 item"
	}
	return strconv.Itoa(n) + " items"
}

// ProductsFragment renders the catalog from props["products"].
func ProductsFragment(props federation.Props) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var p productsProps
		if err := decodeProps(props, &p); err != nil {
			return fmt.Errorf("products props: %w", err)
		}

		h := &htmlWriter{w: w}
		h.raw(`<div class="products"><h2>Products</h2>`)
		if len(p.Products) == 0 {
			h.raw(`<p class="products-empty">No products available.</p></div>`)
			return h.err
		}
		h.raw(`<ul class="product-list">`)
		for _, pr := range p.Products {
			h.raw(`<li data-product-id="`)
			h.text(pr.ID.String())
			h.raw(`"><span class="title">`)
			h.text(pr.Title)
			h.raw(`</span>`)
			if c := pr.CategoryName(); c != "" {
				h.raw(` <span class="category">`)
				h.text(c)
				h.raw(`</span>`)
			}
			h.raw(` <span class="price">`)
			h.text(cart.FormatPrice(cart.PriceCents(pr.Price)))
			h.raw(`</span></li>`)
		}
		h.raw(`</ul></div>`)
		return h.err
	})
}

// Expose registers both fragments on a remote exposer.
func Expose(e *federation.Exposer) {
	e.Expose(BasketModule, BasketFragment)
	e.Expose(ProductsModule, ProductsFragment)
}

// InProcessRemotes registers the fragments as in-process loaders, for a host
// that serves its own fragments without separate remote deployments.
func InProcessRemotes(reg *federation.Registry) {
	reg.Register(BasketRemote, func(_ context.Context, module string) (any, error) {
		if module != BasketModule {
			return nil, fmt.Errorf("%w: %s", federation.ErrModuleNotFound, module)
		}
		return federation.ComponentFunc(BasketFragment), nil
	})
	reg.Register(ProductsRemote, func(_ context.Context, module string) (any, error) {
		if module != ProductsModule {
			return nil, fmt.Errorf("%w: %s", federation.ErrModuleNotFound, module)
		}
		return federation.ComponentFunc(ProductsFragment), nil
	})
}
