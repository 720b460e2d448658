package federation

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Props are passed unchanged from the host to a remote component.
type Props map[string]any

// ComponentFunc builds a component from props. It is the unit a remote exposes.
type ComponentFunc func(Props) templ.Component

// asComponent accepts a ComponentFunc, a func(Props) templ.Component or a
// plain templ.Component, which then ignores props.
func asComponent(v any) (ComponentFunc, error) {
	switch c := v.(type) {
	case ComponentFunc:
		if c != nil {
			return c, nil
		}
	case func(Props) templ.Component:
		if c != nil {
			return c, nil
		}
	case templ.Component:
		if c != nil {
			return func(Props) templ.Component { return c }, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidComponent, v)
}

// LoadingView is the default placeholder shown while a module loads.
func LoadingView() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="remote-loading" role="status" aria-busy="true">Loading…</div>`)
		return err
	})
}

// ErrorView is the default inline alert for a module that failed to load.
func ErrorView(remote string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="remote-error" role="alert"><h3>Component Load Error</h3><p>Failed to load `+
			templ.EscapeString(remote)+` component. Please try again later.</p></div>`)
		return err
	})
}
