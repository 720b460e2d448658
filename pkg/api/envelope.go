package api

import (
	"bytes"
	"encoding/json"
)

// envelope decodes either a bare JSON value or one wrapped in
// {"data": ..., "message": ...}. Some backend endpoints wrap, some do not.
type envelope[T any] struct {
	Value T
}

func (e *envelope[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data *json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Data != nil {
			return json.Unmarshal(*wrapped.Data, &e.Value)
		}
	}
	return json.Unmarshal(trimmed, &e.Value)
}

// cartEnvelope decodes a cart sent as a bare array, {"data": [...]} or
// {"items": [...]}.
type cartEnvelope struct {
	Items []CartItem
}

func (e *cartEnvelope) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data  *json.RawMessage `json:"data"`
			Items *json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		switch {
		case wrapped.Items != nil:
			return json.Unmarshal(*wrapped.Items, &e.Items)
		case wrapped.Data != nil:
			return json.Unmarshal(*wrapped.Data, &e.Items)
		}
	}
	return json.Unmarshal(trimmed, &e.Items)
}
