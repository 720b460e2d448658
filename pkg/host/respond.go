package host

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/storefront/pkg/api"
	"github.com/dmitrymomot/storefront/pkg/authsession"
	"github.com/dmitrymomot/storefront/pkg/cart"
	"github.com/dmitrymomot/storefront/pkg/federation"
)

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Envelope is the body of every JSON endpoint.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request. Code is the sentinel name, e.g. "cart.invalid_quantity".
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type jsonResponse struct {
	status int
	body   Envelope
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures a JSON response.
type JSONOption func(*jsonResponse)

// WithStatus overrides the status code.
func WithStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// WithMeta sets key in the meta field of the envelope.
func WithMeta(key string, v any) JSONOption {
	return func(r *jsonResponse) {
		if r.body.Meta == nil {
			r.body.Meta = make(map[string]any)
		}
		r.body.Meta[key] = v
	}
}

// JSON wraps v in the data field of the envelope.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: Envelope{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError maps err to a status code and an error detail.
func JSONError(err error, opts ...JSONOption) Response {
	status, code := classify(err)
	r := &jsonResponse{
		status: status,
		body:   Envelope{Error: &ErrorDetail{Code: code, Message: err.Error()}},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type errClass struct {
	target error
	status int
}

// Order matters: the first matching sentinel names the error.
var errClasses = []errClass{
	{ErrBadRequest, http.StatusBadRequest},
	{cart.ErrInvalidQuantity, http.StatusUnprocessableEntity},
	{cart.ErrInvalidVariant, http.StatusUnprocessableEntity},
	{cart.ErrInvalidItemID, http.StatusUnprocessableEntity},
	{authsession.ErrLoginFailed, http.StatusUnauthorized},
	{authsession.ErrNotAuthenticated, http.StatusUnauthorized},
	{api.ErrUnauthorized, http.StatusUnauthorized},
	{api.ErrForbidden, http.StatusForbidden},
	{cart.ErrMutationFailed, http.StatusBadGateway},
	{cart.ErrRefreshFailed, http.StatusBadGateway},
	{cart.ErrClearFallback, http.StatusBadGateway},
	{federation.ErrRemoteNotFound, http.StatusNotFound},
	{federation.ErrRemoteUnavailable, http.StatusBadGateway},
}

func classify(err error) (int, string) {
	for _, c := range errClasses {
		if errors.Is(err, c.target) {
			return c.status, c.target.Error()
		}
	}
	return http.StatusInternalServerError, "host.internal_error"
}

type htmlResponse struct {
	status    int
	component templ.Component
}

// Render buffers the component; nothing is written when rendering fails.
func (h htmlResponse) Render(w http.ResponseWriter, r *http.Request) error {
	var buf bytes.Buffer
	if err := h.component.Render(r.Context(), &buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(h.status)
	_, err := buf.WriteTo(w)
	return err
}

// HTML renders component with status 200.
func HTML(component templ.Component) Response {
	return htmlResponse{status: http.StatusOK, component: component}
}

// HTMLStatus renders component with the given status.
func HTMLStatus(status int, component templ.Component) Response {
	return htmlResponse{status: status, component: component}
}
