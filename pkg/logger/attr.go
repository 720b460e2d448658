package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// GuestID records the guest identifier under the key "guest_id".
func GuestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("guest_id", id)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Remote records a remote application and module as a "remote" group.
func Remote(name, module string) slog.Attr {
	return slog.Group("remote", slog.String("name", name), slog.String("module", module))
}

// CartItem records the cart line identifier under the key "cart_item_id".
func CartItem(id string) slog.Attr {
	return slog.String("cart_item_id", id)
}

// Quantity records a line quantity.
func Quantity(q int) slog.Attr {
	return slog.Int("quantity", q)
}

// StorageKey records the persisted key involved in a storage operation.
func StorageKey(key string) slog.Attr {
	return slog.String("storage_key", key)
}

// Endpoint records method and path of a backend call.
func Endpoint(method, path string) slog.Attr {
	return slog.Group("endpoint", slog.String("method", method), slog.String("path", path))
}

// Status records a status code or state name.
func Status(v any) slog.Attr {
	return slog.Any("status", v)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
