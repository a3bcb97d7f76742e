package handler

import (
	"net/http"

	"fastsize/internal/middleware"
	"fastsize/internal/service"
	"fastsize/internal/storage"
)

// Deps carries what the HTTP API is built from. RateLimiter and Logger may
// be nil.
type Deps struct {
	Service      *service.Service
	DB           *storage.DB
	Upstream     *middleware.TrafficStats
	Served       *middleware.TrafficStats
	RateLimiter  *middleware.RateLimiter
	Logger       *middleware.RequestLogger
	AdminToken   string
	BatchMaxURLs int
}

// NewRouter mounts the probe, preview, health and admin routes.
func NewRouter(d Deps) http.Handler {
	probeH := NewProbeHandler(d.Service, d.BatchMaxURLs)
	previewH := NewPreviewHandler(d.Service)
	adminH := NewAdminHandler(d.DB, d.Service, d.Upstream, d.Served)
	admin := middleware.NewAdminMiddleware(d.AdminToken)

	limited := func(h http.Handler) http.Handler {
		if d.RateLimiter == nil {
			return h
		}
		return d.RateLimiter.Middleware(h)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /probe", limited(http.HandlerFunc(probeH.Probe)))
	mux.Handle("POST /probe/batch", limited(http.HandlerFunc(probeH.Batch)))
	mux.Handle("GET /preview", limited(previewH))
	mux.HandleFunc("GET /health", adminH.Health)
	mux.Handle("GET /admin/stats", admin.Middleware(http.HandlerFunc(adminH.Stats)))
	mux.Handle("DELETE /admin/cache", admin.Middleware(http.HandlerFunc(adminH.PurgeCache)))

	if d.Logger == nil {
		return mux
	}
	return d.Logger.Middleware(mux)
}
