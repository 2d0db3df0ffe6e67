/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through the handler's zap logger
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the widget

ROUTE GROUPS:
  /api/status           Status line
  /api/items            Search
  /api/categories       Category buttons
  /api/shelves          Shelf table
  /api/refresh/*        Manual refresh + run history
  /api/scan             QR input
  /api/map.png          Rendered map
  /*                    Static files (widget)

STATIC FILE SERVING:
  Serves the widget from StaticDir. Unknown paths fall back to
  index.html. Without a static directory a small landing page lists
  the API.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Request logger
  - cmd/storemap/serve.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	StaticDir      string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r.Use(RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/items", h.SearchItems)
		r.Get("/categories", h.ListCategories)
		r.Get("/shelves", h.ListShelves)
		r.Post("/scan", h.Scan)
		r.Get("/map.png", h.MapImage)

		r.Route("/refresh", func(r chi.Router) {
			r.Post("/", h.Refresh)
			r.Get("/runs", h.ListRefreshRuns)
		})
	})

	staticDir := opts.StaticDir
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err != nil {
			staticDir = ""
		}
	}

	if staticDir != "" {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, filepath.Clean("/"+r.URL.Path))
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Store Map</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Store Map API</h1>
<p>No widget assets found. Set <code>static_dir</code> to serve them.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/status">/api/status</a> - Load status</li>
<li><a href="/api/categories">/api/categories</a> - Categories</li>
<li><a href="/api/items?q=">/api/items</a> - Search</li>
<li><a href="/api/map.png">/api/map.png</a> - Map</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
