package federation_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/federation"
)

func greeting(props federation.Props) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p>hello %v</p>", props["name"])
		return err
	})
}

func render(t *testing.T, h *federation.Handle, props federation.Props) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, h.Render(context.Background(), &buf, props))
	return buf.String()
}

func TestMount_UnregisteredRemote(t *testing.T) {
	reg := federation.NewRegistry()
	var calls atomic.Int32
	reg.Register("products", func(context.Context, string) (any, error) {
		calls.Add(1)
		return federation.ComponentFunc(greeting), nil
	})
	ld := federation.NewLoader(reg)

	h := ld.Mount(context.Background(), "basket", "./Basket")
	assert.Equal(t, federation.StatusError, h.Status(), "fails synchronously")
	assert.ErrorIs(t, h.Err(), federation.ErrRemoteNotFound)
	assert.Zero(t, calls.Load())

	out := render(t, h, nil)
	assert.Contains(t, out, "Component Load Error")
	assert.Contains(t, out, "Failed to load basket component. Please try again later.")
	assert.False(t, ld.IsAvailable("basket"))
	assert.True(t, ld.IsAvailable("products"))
}

func TestMount_Ready(t *testing.T) {
	release := make(chan struct{})
	var gotModule string
	reg := federation.NewRegistry()
	reg.Register("products", func(_ context.Context, module string) (any, error) {
		<-release
		gotModule = module
		return federation.ComponentFunc(greeting), nil
	})
	ld := federation.NewLoader(reg)

	h := ld.Mount(context.Background(), "products", "./ProductsList")
	assert.Equal(t, federation.StatusLoading, h.Status())
	assert.Contains(t, render(t, h, nil), "Loading")

	close(release)
	require.NoError(t, h.Wait(context.Background()))
	assert.Equal(t, federation.StatusReady, h.Status())
	assert.Equal(t, "./ProductsList", gotModule)
	assert.Equal(t, "<p>hello Ann</p>", render(t, h, federation.Props{"name": "Ann"}))
	assert.True(t, federation.Ready(h))
}

func TestMount_AcceptedComponentShapes(t *testing.T) {
	plain := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "plain")
		return err
	})
	cases := map[string]any{
		"ComponentFunc":   federation.ComponentFunc(greeting),
		"func":            greeting,
		"templ.Component": plain,
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			reg := federation.NewRegistry()
			reg.Register("r", func(context.Context, string) (any, error) { return value, nil })
			h := federation.NewLoader(reg).Mount(context.Background(), "r", "./M")
			require.NoError(t, h.Wait(context.Background()))
			assert.NotEmpty(t, render(t, h, federation.Props{"name": "x"}))
		})
	}
}

func TestMount_Failures(t *testing.T) {
	cases := map[string]struct {
		loader federation.LoaderFunc
		want   error
	}{
		"invalid component": {
			loader: func(context.Context, string) (any, error) { return "not a component", nil },
			want:   federation.ErrInvalidComponent,
		},
		"nil component": {
			loader: func(context.Context, string) (any, error) { return nil, nil },
			want:   federation.ErrInvalidComponent,
		},
		"loader error": {
			loader: func(context.Context, string) (any, error) { return nil, federation.ErrModuleNotFound },
			want:   federation.ErrModuleNotFound,
		},
		"loader panic": {
			loader: func(context.Context, string) (any, error) { panic("boom") },
			want:   federation.ErrLoaderPanic,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reg := federation.NewRegistry()
			reg.Register("basket", tc.loader)
			h := federation.NewLoader(reg).Mount(context.Background(), "basket", "./Basket")

			assert.ErrorIs(t, h.Wait(context.Background()), tc.want)
			assert.Equal(t, federation.StatusError, h.Status())
			assert.Contains(t, render(t, h, nil), "Failed to load basket component")
		})
	}
}

func TestMount_RenderFailureShowsAlert(t *testing.T) {
	reg := federation.NewRegistry()
	reg.Register("basket", func(context.Context, string) (any, error) {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return errors.New("remote went away")
		}), nil
	})
	h := federation.NewLoader(reg).Mount(context.Background(), "basket", "./Basket")
	require.NoError(t, h.Wait(context.Background()))

	out := render(t, h, nil)
	assert.NotContains(t, out, "partial")
	assert.Contains(t, out, "Component Load Error")
}

func TestMount_RenderPanicShowsAlert(t *testing.T) {
	reg := federation.NewRegistry()
	reg.Register("basket", func(context.Context, string) (any, error) {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			var counts map[string]int
			counts["lines"]++
			return nil
		}), nil
	})
	reg.Register("products", func(context.Context, string) (any, error) {
		return federation.ComponentFunc(func(federation.Props) templ.Component {
			panic("bad props")
		}), nil
	})
	ld := federation.NewLoader(reg)

	for _, remote := range []string{"basket", "products"} {
		t.Run(remote, func(t *testing.T) {
			h := ld.Mount(context.Background(), remote, "./Module")
			require.NoError(t, h.Wait(context.Background()))

			var buf bytes.Buffer
			require.NotPanics(t, func() {
				require.NoError(t, h.Render(context.Background(), &buf, nil))
			})
			assert.Contains(t, buf.String(), "Component Load Error")
		})
	}
}

func TestMount_EveryMountReloads(t *testing.T) {
	var calls atomic.Int32
	reg := federation.NewRegistry()
	reg.Register("products", func(context.Context, string) (any, error) {
		calls.Add(1)
		return federation.ComponentFunc(greeting), nil
	})
	ld := federation.NewLoader(reg)

	for range 3 {
		require.NoError(t, ld.Mount(context.Background(), "products", "./ProductsList").Wait(context.Background()))
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestHandle_Release(t *testing.T) {
	release := make(chan struct{})
	reg := federation.NewRegistry()
	reg.Register("products", func(context.Context, string) (any, error) {
		<-release
		return federation.ComponentFunc(greeting), nil
	})
	h := federation.NewLoader(reg).Mount(context.Background(), "products", "./ProductsList")

	h.Release()
	close(release)
	require.NoError(t, h.Wait(context.Background()))
	assert.Nil(t, h.Component(), "late result is discarded")
	assert.ErrorIs(t, h.Render(context.Background(), io.Discard, nil), federation.ErrReleased)
}

func TestHandle_WaitHonoursContext(t *testing.T) {
	reg := federation.NewRegistry()
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	reg.Register("slow", func(context.Context, string) (any, error) {
		<-block
		return nil, nil
	})
	h := federation.NewLoader(reg).Mount(context.Background(), "slow", "./X")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Wait(ctx), context.DeadlineExceeded)
	assert.Equal(t, federation.StatusLoading, h.Status())
}

func TestLoader_CustomViews(t *testing.T) {
	reg := federation.NewRegistry()
	ld := federation.NewLoader(reg, federation.WithErrorView(func(remote string, err error) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, werr := fmt.Fprintf(w, "oops %s", remote)
			return werr
		})
	}))
	assert.Equal(t, "oops basket", render(t, ld.Mount(context.Background(), "basket", "./Basket"), nil))
}

func TestPreload(t *testing.T) {
	reg := federation.NewRegistry()
	reg.Register("products", func(_ context.Context, module string) (any, error) {
		if module != "./ProductsList" {
			return nil, federation.ErrModuleNotFound
		}
		return federation.ComponentFunc(greeting), nil
	})
	ld := federation.NewLoader(reg)

	assert.NoError(t, ld.Preload(context.Background(), "products", "./ProductsList"))
	assert.ErrorIs(t, ld.Preload(context.Background(), "products", "./Other"), federation.ErrModuleNotFound)
	assert.ErrorIs(t, ld.Preload(context.Background(), "basket", "./Basket"), federation.ErrRemoteNotFound)
}

func TestErrorView_EscapesRemoteName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, federation.ErrorView("<script>").Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "<script>")
}
