package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Auth

// Login exchanges credentials for a user token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	_, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "auth/login",
		body:        map[string]string{"email": email, "password": password},
		invalidates: []string{TagAuth},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	var out AuthResponse
	_, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "auth/register",
		body:        map[string]string{"email": email, "password": password, "name": name},
		invalidates: []string{TagAuth},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateGuest provisions an anonymous identity.
func (c *Client) CreateGuest(ctx context.Context) (*GuestResponse, error) {
	var out GuestResponse
	if _, err := c.do(ctx, call{method: http.MethodPost, path: "auth/guest"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken issues a new token for the current one.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	_, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "auth/refresh",
		invalidates: []string{TagAuth},
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// Logout revokes the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "auth/logout",
		invalidates: []string{TagAuth, TagCart, TagOrder, TagAddress},
	}, nil)
	return err
}

// Me fetches the profile of the token owner. It always asks the server, so a
// revoked or expired token surfaces as ErrUnauthorized.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out envelope[User]
	_, err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "users/me",
		provides:   []string{TagAuth},
		revalidate: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// Catalog

// Products lists the catalog, at most limit entries (50 when limit <= 0).
func (c *Client) Products(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	var out envelope[[]Product]
	_, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     fmt.Sprintf("products?limit=%d", limit),
		provides: []string{TagProduct},
	}, &out)
	return out.Value, err
}

// Product fetches a single product.
func (c *Client) Product(ctx context.Context, id ID) (*Product, error) {
	var out envelope[Product]
	_, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "products/" + url.PathEscape(id.String()),
		provides: []string{TagProduct},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// Variants lists the variants of a product.
func (c *Client) Variants(ctx context.Context, productID ID) ([]Variant, error) {
	var out envelope[[]Variant]
	_, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "products/" + url.PathEscape(productID.String()) + "/variants",
		provides: []string{TagVariant},
	}, &out)
	return out.Value, err
}

// Reviews lists the reviews of a product.
func (c *Client) Reviews(ctx context.Context, productID ID) ([]Review, error) {
	var out envelope[[]Review]
	_, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "products/" + url.PathEscape(productID.String()) + "/reviews",
		provides: []string{TagReview},
	}, &out)
	return out.Value, err
}

// AddReview posts a review for a product.
func (c *Client) AddReview(ctx context.Context, productID ID, rating int, comment string) (*Review, error) {
	var out envelope[Review]
	_, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "products/" + url.PathEscape(productID.String()) + "/reviews",
		body:        map[string]any{"rating": rating, "comment": comment},
		invalidates: []string{TagReview, TagProduct},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// Categories lists product categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out envelope[[]Category]
	_, err := c.do(ctx, call{method: http.MethodGet, path: "categories", provides: []string{TagCategory}}, &out)
	return out.Value, err
}

// CategoryProducts lists up to 50 products of a category.
func (c *Client) CategoryProducts(ctx context.Context, categoryID ID) ([]Product, error) {
	var out envelope[[]Product]
	_, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "categories/" + url.PathEscape(categoryID.String()) + "/products?limit=50",
		provides: []string{TagProduct},
	}, &out)
	return out.Value, err
}

// Cart

// Cart reads the server cart of the active identity, served from the read
// cache when a copy is held.
func (c *Client) Cart(ctx context.Context) ([]CartItem, error) {
	return c.readCart(ctx, false)
}

// FetchCart reads the server cart over the network and refreshes the cached
// copy.
func (c *Client) FetchCart(ctx context.Context) ([]CartItem, error) {
	return c.readCart(ctx, true)
}

func (c *Client) readCart(ctx context.Context, revalidate bool) ([]CartItem, error) {
	var out cartEnvelope
	_, err := c.do(ctx, call{
		method:     http.MethodGet,
		path:       "cart",
		provides:   []string{TagCart},
		revalidate: revalidate,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Items == nil {
		return []CartItem{}, nil
	}
	return out.Items, nil
}

// AddToCart adds quantity of a variant. A nil slice with a nil error means
// the server accepted the write without returning the cart.
func (c *Client) AddToCart(ctx context.Context, variantID ID, quantity int) ([]CartItem, error) {
	body := map[string]any{"variantId": variantID.Int(), "quantity": quantity}
	if variantID.Int() == 0 {
		body["variantId"] = variantID.String()
	}
	return c.cartMutation(ctx, call{
		method:      http.MethodPost,
		path:        "cart",
		body:        body,
		invalidates: []string{TagCart},
	})
}

// UpdateCartItem sets the quantity of a line. Same nil-slice contract as AddToCart.
func (c *Client) UpdateCartItem(ctx context.Context, itemID ID, quantity int) ([]CartItem, error) {
	return c.cartMutation(ctx, call{
		method:      http.MethodPatch,
		path:        "cart/" + url.PathEscape(itemID.String()),
		body:        map[string]int{"quantity": quantity},
		invalidates: []string{TagCart},
	})
}

// RemoveCartItem deletes a line.
func (c *Client) RemoveCartItem(ctx context.Context, itemID ID) error {
	_, err := c.do(ctx, call{
		method:      http.MethodDelete,
		path:        "cart/" + url.PathEscape(itemID.String()),
		invalidates: []string{TagCart},
	}, nil)
	return err
}

// ClearCart deletes every line.
func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: "cart", invalidates: []string{TagCart}}, nil)
	return err
}

func (c *Client) cartMutation(ctx context.Context, cl call) ([]CartItem, error) {
	var out cartEnvelope
	hasBody, err := c.do(ctx, cl, &out)
	if err != nil {
		// A body that is not a cart (e.g. a single line object) still counts
		// as accepted; the caller refetches.
		if hasBody && isDecode(err) {
			return nil, nil
		}
		return nil, err
	}
	if !hasBody {
		return nil, nil
	}
	if out.Items == nil {
		return []CartItem{}, nil
	}
	return out.Items, nil
}

// Orders

// Orders lists the orders of the current user.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out envelope[[]Order]
	_, err := c.do(ctx, call{method: http.MethodGet, path: "orders/users/me/orders", provides: []string{TagOrder}}, &out)
	return out.Value, err
}

// CreateOrder places an order. The server empties the cart.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var out envelope[Order]
	_, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "orders",
		body:        req,
		invalidates: []string{TagOrder, TagCart},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// Addresses

// Addresses lists the saved addresses of the current user.
func (c *Client) Addresses(ctx context.Context) ([]Address, error) {
	var out envelope[[]Address]
	_, err := c.do(ctx, call{method: http.MethodGet, path: "users/me/addresses", provides: []string{TagAddress}}, &out)
	return out.Value, err
}

// AddAddress saves a new address.
func (c *Client) AddAddress(ctx context.Context, a Address) (*Address, error) {
	a.ID = ""
	var out envelope[Address]
	_, err := c.do(ctx, call{
		method:      http.MethodPost,
		path:        "users/me/addresses",
		body:        a,
		invalidates: []string{TagAddress},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// UpdateAddress replaces a saved address.
func (c *Client) UpdateAddress(ctx context.Context, a Address) (*Address, error) {
	var out envelope[Address]
	_, err := c.do(ctx, call{
		method:      http.MethodPut,
		path:        "users/me/addresses/" + url.PathEscape(a.ID.String()),
		body:        a,
		invalidates: []string{TagAddress},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// DeleteAddress removes a saved address.
func (c *Client) DeleteAddress(ctx context.Context, id ID) error {
	_, err := c.do(ctx, call{
		method:      http.MethodDelete,
		path:        "users/me/addresses/" + url.PathEscape(id.String()),
		invalidates: []string{TagAddress},
	}, nil)
	return err
}
