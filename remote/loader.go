/*
Package remote fetches the catalog from the published sheet endpoint.

PURPOSE:
  Implements catalog.Source: one HTTP GET, validate the body, enrich the
  rows with their search index and build the shelf table.

RESPONSE FORMAT:
  {
    "items":   [ {"name": "...", "category": "...", "area": "①B2", ...}, ... ],
    "shelves": [ {"key": "①B2", "x": 20, "y": 60}, ... ]      (optional)
  }

ERRORS:
  *catalog.TransportError  network failure or non-2xx status
  *catalog.ShapeError      body is not JSON, items missing or not an array,
                           shelves present but not an array

RETRIES:
  None. One attempt per call; the caller decides when to try again.

CACHING:
  force=true sends no-cache headers so intermediaries revalidate. With
  force=false no cache-control header is sent.

SEE ALSO:
  - catalog/controller.go: The only caller
  - catalog/types.go: BuildShelfMap
*/
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/storemap/catalog"
)

// Loader is a catalog.Source backed by an HTTP endpoint.
type Loader struct {
	Endpoint string
	Client   *http.Client
	Logger   *zap.Logger
}

var _ catalog.Source = (*Loader)(nil)

// NewLoader returns a loader using http.DefaultClient.
func NewLoader(endpoint string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Endpoint: endpoint, Client: http.DefaultClient, Logger: logger.Named("loader")}
}

// payload is the raw response. Fields stay raw so their JSON kind can be
// checked before decoding.
type payload struct {
	Items   json.RawMessage `json:"items"`
	Shelves json.RawMessage `json:"shelves"`
}

// Fetch performs one request and returns the decoded dataset.
func (l *Loader) Fetch(ctx context.Context, force bool) (catalog.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Endpoint, nil)
	if err != nil {
		return catalog.Dataset{}, &catalog.TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if force {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return catalog.Dataset{}, &catalog.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return catalog.Dataset{}, &catalog.TransportError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return catalog.Dataset{}, &catalog.TransportError{Err: err}
	}

	ds, err := Decode(body)
	if err != nil {
		return catalog.Dataset{}, err
	}

	l.logger().Debug("Catalog fetched",
		zap.Bool("force", force),
		zap.Int("items", len(ds.Items)),
		zap.Int("shelves", len(ds.Shelves)))
	return ds, nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Decode validates a response body and builds the dataset from it.
func Decode(body []byte) (catalog.Dataset, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return catalog.Dataset{}, &catalog.ShapeError{Reason: "body is not a JSON object"}
	}

	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return catalog.Dataset{}, &catalog.ShapeError{Reason: "body is not valid JSON", Err: err}
	}

	if kind(p.Items) != '[' {
		return catalog.Dataset{}, &catalog.ShapeError{Reason: "items is missing or not an array"}
	}
	var items []catalog.CatalogItem
	if err := json.Unmarshal(p.Items, &items); err != nil {
		return catalog.Dataset{}, &catalog.ShapeError{Reason: "items has invalid rows", Err: err}
	}

	var rows []catalog.ShelfRow
	switch kind(p.Shelves) {
	case 0, 'n':
		// absent or null
	case '[':
		if err := json.Unmarshal(p.Shelves, &rows); err != nil {
			return catalog.Dataset{}, &catalog.ShapeError{Reason: "shelves has invalid rows", Err: err}
		}
	default:
		return catalog.Dataset{}, &catalog.ShapeError{Reason: "shelves is not an array"}
	}

	return catalog.Dataset{
		Items:   catalog.Enrich(items),
		Shelves: catalog.BuildShelfMap(rows),
	}, nil
}

// kind returns the first byte of a JSON value, or 0 when absent.
func kind(raw json.RawMessage) byte {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return 0
	}
	return t[0]
}

// ErrNoEndpoint is returned by Validate for an empty endpoint.
var ErrNoEndpoint = errors.New("remote: endpoint not configured")

// Validate checks that the loader can issue requests.
func (l *Loader) Validate() error {
	if l.Endpoint == "" {
		return ErrNoEndpoint
	}
	if _, err := http.NewRequest(http.MethodGet, l.Endpoint, nil); err != nil {
		return fmt.Errorf("remote: invalid endpoint %q: %w", l.Endpoint, err)
	}
	return nil
}
