/*
handlers.go - HTTP API handlers for the store-map lookup service

PURPOSE:
  Exposes the lookup engine to the map widget. Handles HTTP
  request/response and JSON serialization, and delegates to the catalog
  package for search, resolution and reconciliation.

ENDPOINTS:
  Status:
    GET    /api/status              Status line + snapshot counts

  Catalog:
    GET    /api/items               Search (category, q, mode, limit)
    GET    /api/categories          Category buttons ("all" first)
    GET    /api/shelves             Current shelf table

  Refresh:
    POST   /api/refresh             Manual refresh (forced Init)
    GET    /api/refresh/runs        Recent refresh attempts

  Scan:
    POST   /api/scan                Decoded QR string, searched like typed text

  Map:
    GET    /api/map.png             Map image with the matches drawn on it

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Controller: Owns the snapshot; handlers only read it (except refresh)
  - Runs: Refresh run history (SQLite)
  - Map: Base map renderer

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input
  - 500: Internal errors
  A failed refresh is not an HTTP error: the status body says what happened.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/warp/storemap/catalog"
	"github.com/warp/storemap/mapimage"
	"github.com/warp/storemap/scan"
)

// RunLister lists recorded refresh runs.
type RunLister interface {
	GetRefreshRuns(ctx context.Context, limit int) ([]catalog.RefreshRun, error)
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Controller *catalog.Controller
	Runs       RunLister
	Map        *mapimage.Renderer

	// ListLimit caps the items returned per search.
	ListLimit int
	Location  *time.Location
	Logger    *zap.Logger
}

// NewHandler creates a new handler around controller.
func NewHandler(controller *catalog.Controller, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Controller: controller,
		Map:        mapimage.Blank(0, 0),
		ListLimit:  12,
		Location:   time.Local,
		Logger:     logger.Named("api"),
	}
}

// =============================================================================
// STATUS
// =============================================================================

// GetStatus returns the current status line.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatusDTO(h.Controller.Status(), h.Controller.Snapshot(), h.Location))
}

// =============================================================================
// CATALOG
// =============================================================================

// SearchItems filters the catalog by category, query and mode.
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"), h.ListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	query := catalog.Query{
		Category: q.Get("category"),
		Text:     q.Get("q"),
		Mode:     catalog.ParseMode(q.Get("mode")),
	}
	writeJSON(w, http.StatusOK, h.search(query, limit))
}

// ListCategories returns the category buttons.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Categories(h.Controller.Snapshot().Items))
}

// ListShelves returns the current shelf table.
func (h *Handler) ListShelves(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Controller.Snapshot().Shelves)
}

// search runs a query against the current snapshot.
func (h *Handler) search(query catalog.Query, limit int) SearchResponse {
	snap := h.Controller.Snapshot()
	res := catalog.Search(snap.Items, query)

	resp := SearchResponse{
		Outcome: string(res.Outcome),
		Message: res.Message,
		Total:   len(res.Items),
		Items:   []ItemDTO{},
	}
	if focus, ok := res.Focus(); ok {
		dto := toItemDTO(catalog.Display(focus, snap.Shelves))
		resp.Focus = &dto
	}

	shown := res.Items
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, it := range shown {
		resp.Items = append(resp.Items, toItemDTO(catalog.Display(it, snap.Shelves)))
	}
	return resp
}

// =============================================================================
// REFRESH
// =============================================================================

// Refresh runs a forced reconciliation and reports the resulting status.
// The fetch is detached from the request: a client that disconnects does
// not cancel it, and the snapshot still moves to its result.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	st := h.Controller.Init(context.WithoutCancel(r.Context()), true)
	writeJSON(w, http.StatusOK, toStatusDTO(st, h.Controller.Snapshot(), h.Location))
}

// ListRefreshRuns returns recent refresh attempts, newest first.
func (h *Handler) ListRefreshRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeJSON(w, http.StatusOK, []RefreshRunDTO{})
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	runs, err := h.Runs.GetRefreshRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refresh runs", err)
		return
	}

	dtos := make([]RefreshRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRefreshRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SCAN
// =============================================================================

// Scan searches with a decoded QR string as the query text.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ev := scan.Event{Text: req.Text, At: time.Now()}
	h.Logger.Debug("Scan received", zap.String("text", ev.Text))
	writeJSON(w, http.StatusOK, h.search(ev.Query(req.Category, catalog.ParseMode(req.Mode)), h.ListLimit))
}

// =============================================================================
// MAP
// =============================================================================

// MapImage renders the matches of a search on the map. By default only the
// focus item is drawn, like the widget; all=true draws every listed match.
func (h *Handler) MapImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width := 0
	if v := q.Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid width", err)
			return
		}
		width = n
	}

	snap := h.Controller.Snapshot()
	res := catalog.Search(snap.Items, catalog.Query{
		Category: q.Get("category"),
		Text:     q.Get("q"),
		Mode:     catalog.ParseMode(q.Get("mode")),
	})

	drawn := res.Items
	if q.Get("all") != "true" && len(drawn) > 1 {
		drawn = drawn[:1]
	} else if len(drawn) > h.ListLimit && h.ListLimit > 0 {
		drawn = drawn[:h.ListLimit]
	}

	img := h.Map.Render(catalog.DisplayAll(drawn, snap.Shelves), width)

	var buf bytes.Buffer
	if err := mapimage.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode map", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func parseLimit(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
