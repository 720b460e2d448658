package host

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrymomot/storefront/pkg/api"
)

const maxBodyBytes = 1 << 20

// formDecoder is implemented by request types that accept urlencoded forms.
type formDecoder interface {
	decodeForm(url.Values) error
}

// bind decodes a JSON body or, for form content types, the parsed form.
func bind(w http.ResponseWriter, r *http.Request, v formDecoder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return errors.Join(ErrBadRequest, err)
		}
		if err := v.decodeForm(r.PostForm); err != nil {
			return errors.Join(ErrBadRequest, err)
		}
		return nil
	default:
		if r.ContentLength == 0 {
			return nil
		}
		if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return errors.Join(ErrBadRequest, err)
		}
		return nil
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (c *credentialsRequest) decodeForm(f url.Values) error {
	c.Email = f.Get("email")
	c.Password = f.Get("password")
	c.Name = f.Get("name")
	return nil
}

func (c credentialsRequest) normalized() credentialsRequest {
	c.Email = strings.TrimSpace(c.Email)
	c.Name = strings.TrimSpace(c.Name)
	return c
}

type addItemRequest struct {
	VariantID api.ID `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

func (a *addItemRequest) decodeForm(f url.Values) error {
	a.VariantID = api.ID(strings.TrimSpace(f.Get("variantId")))
	q, err := formInt(f, "quantity", 1)
	a.Quantity = q
	return err
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (q *quantityRequest) decodeForm(f url.Values) error {
	n, err := formInt(f, "quantity", 0)
	q.Quantity = n
	return err
}

func formInt(f url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(f.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + ": not an integer")
	}
	return n, nil
}
