package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// ManifestPath is where a remote serves its Manifest, relative to its base URL.
const ManifestPath = "remoteEntry.json"

// Manifest lists the modules a remote exposes and the paths they render at.
type Manifest struct {
	Name    string            `json:"name"`
	Exposes map[string]string `json:"exposes"`
}

// HTTPRemote returns a loader for a remote served over HTTP at baseURL.
// Loading fetches the manifest; rendering POSTs the props as JSON to the
// module path and streams the returned HTML. A nil client means
// http.DefaultClient.
func HTTPRemote(baseURL string, client *http.Client) LoaderFunc {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimRight(baseURL, "/")

	return func(ctx context.Context, module string) (any, error) {
		m, err := fetchManifest(ctx, client, base)
		if err != nil {
			return nil, err
		}
		path, ok := m.Exposes[module]
		if !ok {
			return nil, fmt.Errorf("%w: %q does not expose %q", ErrModuleNotFound, m.Name, module)
		}
		target := base + "/" + strings.TrimLeft(path, "/")

		return ComponentFunc(func(props Props) templ.Component {
			return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				return renderRemote(ctx, client, target, props, w)
			})
		}), nil
	}
}

func fetchManifest(ctx context.Context, client *http.Client, base string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+ManifestPath, nil)
	if err != nil {
		return nil, errors.Join(ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: manifest: %s", ErrRemoteUnavailable, resp.Status)
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, errors.Join(ErrRemoteUnavailable, fmt.Errorf("decode manifest: %w", err))
	}
	return &m, nil
}

func renderRemote(ctx context.Context, client *http.Client, target string, props Props, w io.Writer) error {
	if props == nil {
		props = Props{}
	}
	body, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("federation: encode props: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return errors.Join(ErrRemoteUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Join(ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: render: %s", ErrRemoteUnavailable, resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
