/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Status before and after loading
- Search, categories and shelves over a loaded snapshot
- Manual refresh and the refresh run log
- QR scan submissions
- Map rendering and static fallback
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/storemap/cache"
	"github.com/warp/storemap/catalog"
	"github.com/warp/storemap/catalog/store"
	"github.com/warp/storemap/mapimage"
	"github.com/warp/storemap/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// staticSource always returns the same dataset or error.
type staticSource struct {
	ds  catalog.Dataset
	err error
}

func (s *staticSource) Fetch(context.Context, bool) (catalog.Dataset, error) {
	return s.ds, s.err
}

func testDataset() catalog.Dataset {
	return catalog.Dataset{
		Items: catalog.Enrich([]catalog.CatalogItem{
			{Name: "Shampoo", Category: "Bath", Brand: "Acme", Area: "①B2"},
			{Name: "Shampoo refill", Category: "Bath", Brand: "Acme", X: catalog.CoordText("12.345"), Y: catalog.NewCoord(30)},
			{Name: "Rope", Category: "Outdoor", Area: "A1", Area2: "A5", Label: "Rope (by the meter)"},
			{Name: "Green tea", Category: "Drinks"},
		}),
		Shelves: catalog.ShelfMap{
			"①B2": {X: 40, Y: 60},
			"A1":  {X: 10, Y: 20},
			"A5":  {X: 50, Y: 20},
		},
	}
}

type testServer struct {
	source  *staticSource
	db      *sqlite.Store
	handler *Handler
	router  http.Handler
}

func setupTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	source := &staticSource{ds: testDataset()}
	ctrl := catalog.NewController(source, cache.New(store.NewMemory(0)),
		catalog.WithRunRecorder(db),
		catalog.WithLocation(time.UTC),
	)

	h := NewHandler(ctrl, nil)
	h.Runs = db
	h.Map = mapimage.Blank(200, 100)
	h.Location = time.UTC

	return &testServer{source: source, db: db, handler: h, router: NewRouter(h, opts)}
}

func (s *testServer) load(t *testing.T) {
	t.Helper()
	st := s.handler.Controller.Init(context.Background(), false)
	require.Equal(t, catalog.StatusReady, st.Kind)
}

func (s *testServer) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// =============================================================================
// STATUS
// =============================================================================

func TestGetStatus_BeforeLoad(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StatusDTO](t, rec)
	assert.Equal(t, "idle", st.Kind)
	assert.Equal(t, "empty", st.Phase)
	assert.Equal(t, "none", st.Origin)
	assert.Zero(t, st.ItemCount)
}

func TestGetStatus_AfterLoad(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	st := decode[StatusDTO](t, s.do(t, http.MethodGet, "/api/status", ""))

	assert.Equal(t, "ready", st.Kind)
	assert.Equal(t, "showing_fresh", st.Phase)
	assert.Equal(t, "remote", st.Origin)
	assert.Equal(t, 4, st.ItemCount)
	assert.Equal(t, 3, st.ShelfCount)
	assert.NotEmpty(t, st.AsOf)
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearchItems_ResolvesPositions(t *testing.T) {
	// GIVEN: A loaded catalog
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	// WHEN: Searching for shampoo
	rec := s.do(t, http.MethodGet, "/api/items?q=shampoo", "")

	// THEN: Both products, the first placed on shelf ①B2
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Equal(t, "found", resp.Outcome)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Items, 2)

	require.NotNil(t, resp.Focus)
	assert.Equal(t, "Shampoo", resp.Focus.Name)
	require.NotNil(t, resp.Focus.Position)
	assert.Equal(t, 40.0, resp.Focus.Position.X)
	assert.Equal(t, 60.0, resp.Focus.Position.Y)
	assert.False(t, resp.Focus.Line)

	refill := resp.Items[1]
	require.NotNil(t, refill.Position)
	assert.Equal(t, 12.35, refill.Position.X)
	assert.Equal(t, 30.0, refill.Position.Y)
}

func TestSearchItems_RangeAndUnplottable(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	rope := decode[SearchResponse](t, s.do(t, http.MethodGet, "/api/items?q=rope&mode=name", ""))
	require.Len(t, rope.Items, 1)
	item := rope.Items[0]
	assert.Equal(t, "Rope (by the meter)", item.Label)
	assert.True(t, item.Line)
	require.NotNil(t, item.Position.X2)
	assert.Equal(t, 50.0, *item.Position.X2)

	tea := decode[SearchResponse](t, s.do(t, http.MethodGet, "/api/items?category=Drinks", ""))
	require.Len(t, tea.Items, 1)
	assert.Nil(t, tea.Items[0].Position)
}

func TestSearchItems_GuideAndNoMatch(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	guide := decode[SearchResponse](t, s.do(t, http.MethodGet, "/api/items?category=all", ""))
	assert.Equal(t, "guide", guide.Outcome)
	assert.Equal(t, catalog.MessageGuide, guide.Message)
	assert.NotNil(t, guide.Items)
	assert.Empty(t, guide.Items)

	none := decode[SearchResponse](t, s.do(t, http.MethodGet, "/api/items?q=zz", ""))
	assert.Equal(t, "no_match", none.Outcome)
	assert.Nil(t, none.Focus)
}

func TestSearchItems_Limit(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	resp := decode[SearchResponse](t, s.do(t, http.MethodGet, "/api/items?q=acme&mode=brand&limit=1", ""))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Items, 1)

	rec := s.do(t, http.MethodGet, "/api/items?q=acme&limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/items?q=acme&limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid limit", decode[ErrorResponse](t, rec).Error)
}

func TestSearchItems_DefaultListLimit(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.handler.ListLimit = 1
	s.load(t)

	resp := decode[SearchResponse](t, s.do(t, http.MethodGet, "/api/items?q=shampoo", ""))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Items, 1)
}

func TestListCategoriesAndShelves(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	cats := decode[[]string](t, s.do(t, http.MethodGet, "/api/categories", ""))
	assert.Equal(t, []string{"all", "Bath", "Drinks", "Outdoor"}, cats)

	shelves := decode[catalog.ShelfMap](t, s.do(t, http.MethodGet, "/api/shelves", ""))
	assert.Equal(t, testDataset().Shelves, shelves)
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefresh_FailureIsStatusNotHTTPError(t *testing.T) {
	// GIVEN: A loaded catalog and a source that has gone away
	s := setupTestServer(t, RouterOptions{})
	s.load(t)
	s.source.err = &catalog.TransportError{StatusCode: http.StatusBadGateway}

	// WHEN: Refreshing manually
	rec := s.do(t, http.MethodPost, "/api/refresh", "")

	// THEN: 200 with the offline status; the cached catalog is still served
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StatusDTO](t, rec)
	assert.Equal(t, "offline", st.Kind)
	assert.Equal(t, "degraded", st.Phase)
	assert.Equal(t, "cache", st.Origin)
	assert.Equal(t, 4, st.ItemCount)
	assert.NotEmpty(t, st.CacheTime)

	// AND: Both attempts are in the run log, newest first
	runs := decode[[]RefreshRunDTO](t, s.do(t, http.MethodGet, "/api/refresh/runs", ""))
	require.Len(t, runs, 2)
	assert.Equal(t, "offline", runs[0].Outcome)
	assert.True(t, runs[0].Forced)
	assert.Contains(t, runs[0].Error, "502")
	assert.Equal(t, "fresh", runs[1].Outcome)

	limited := decode[[]RefreshRunDTO](t, s.do(t, http.MethodGet, "/api/refresh/runs?limit=1", ""))
	assert.Len(t, limited, 1)
}

// slowSource returns its dataset after a delay unless ctx ends first.
type slowSource struct {
	ds    catalog.Dataset
	delay time.Duration
}

func (s *slowSource) Fetch(ctx context.Context, _ bool) (catalog.Dataset, error) {
	select {
	case <-time.After(s.delay):
		return s.ds, nil
	case <-ctx.Done():
		return catalog.Dataset{}, ctx.Err()
	}
}

func TestRefresh_ClientDisconnectDoesNotCancelFetch(t *testing.T) {
	// GIVEN: A slow source and a request whose client is already gone
	s := setupTestServer(t, RouterOptions{})
	s.handler.Controller = catalog.NewController(
		&slowSource{ds: testDataset(), delay: 50 * time.Millisecond},
		cache.New(store.NewMemory(0)),
		catalog.WithLocation(time.UTC),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	// WHEN: Refreshing manually
	s.router.ServeHTTP(rec, req)

	// THEN: The fetch ran to completion and its data is served
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[StatusDTO](t, rec)
	assert.Equal(t, "ready", st.Kind)
	assert.Equal(t, "remote", st.Origin)
	assert.Equal(t, 4, st.ItemCount)

	snap := s.handler.Controller.Snapshot()
	assert.Len(t, snap.Items, 4)
	assert.Equal(t, catalog.OriginRemote, snap.Origin)
}

func TestListRefreshRuns_NoRecorder(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.handler.Runs = nil

	runs := decode[[]RefreshRunDTO](t, s.do(t, http.MethodGet, "/api/refresh/runs", ""))
	assert.Empty(t, runs)
}

// =============================================================================
// SCAN
// =============================================================================

func TestScan_SearchesDecodedText(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	rec := s.do(t, http.MethodPost, "/api/scan", `{"text":"  green TEA "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Equal(t, "found", resp.Outcome)
	require.NotNil(t, resp.Focus)
	assert.Equal(t, "Green tea", resp.Focus.Name)
}

func TestScan_WithCategory(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	resp := decode[SearchResponse](t, s.do(t, http.MethodPost, "/api/scan", `{"text":"shampoo","category":"Drinks"}`))
	assert.Equal(t, "no_match", resp.Outcome)
}

func TestScan_InvalidBody(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodPost, "/api/scan", `{"text":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode[ErrorResponse](t, rec).Error)
}

// =============================================================================
// MAP
// =============================================================================

func TestMapImage(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})
	s.load(t)

	rec := s.do(t, http.MethodGet, "/api/map.png?q=rope&width=100", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestMapImage_InvalidWidth(t *testing.T) {
	s := setupTestServer(t, RouterOptions{})

	rec := s.do(t, http.MethodGet, "/api/map.png?width=wide", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// STATIC FILES
// =============================================================================

func TestStatic_FallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>widget</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	s := setupTestServer(t, RouterOptions{StaticDir: dir})

	rec := s.do(t, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/shelf/B2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "widget")
}

func TestStatic_LandingPageWithoutAssets(t *testing.T) {
	s := setupTestServer(t, RouterOptions{StaticDir: filepath.Join(t.TempDir(), "missing")})

	rec := s.do(t, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Store Map API")
}
