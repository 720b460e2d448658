// Package host is the storefront host application: a chi router that
// composes remote fragments into one page and exposes the session and cart
// services as JSON endpoints.
//
// A host process serves a single client identity. Bootstrap provisions the
// guest token, restores the session and loads the cart; the page then mounts
// products/./ProductsList and basket/./Basket, waiting a bounded time for each
// and rendering the loading placeholder or the inline error alert for those
// that are not ready.
//
// Routes:
//
//	GET    /                        page
//	GET    /fragments/{remote}/*    one fragment, e.g. /fragments/basket/Basket
//	GET    /events                  datastar stream: #basket patches, "session" signal
//	GET    /api/session             session view model
//	POST   /api/login               {email, password}
//	POST   /api/register            {email, password, name}
//	POST   /api/logout
//	GET    /api/cart                cart summary, ?refresh re-reads the server
//	POST   /api/cart                {variantId, quantity}
//	PATCH  /api/cart/{id}           {quantity}
//	DELETE /api/cart/{id}
//	DELETE /api/cart
//	GET    /healthz
//	GET    /metrics                 when WithMetricsHandler is set
//
// Request bodies are JSON or urlencoded forms. JSON responses use Envelope.
// Fragment requests sent by the datastar client are answered with an element
// patch into the element named after the remote.
//
// BasketFragment and ProductsFragment are the fragment components; Expose
// serves them from a remote application and InProcessRemotes registers them
// in a host registry directly.
package host
