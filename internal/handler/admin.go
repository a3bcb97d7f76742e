package handler

import (
	"net/http"
	"strconv"
	"time"

	"fastsize/internal/middleware"
	"fastsize/internal/service"
	"fastsize/internal/storage"
)

const defaultRecentLimit = 20

type AdminHandler struct {
	db        *storage.DB
	svc       *service.Service
	upstream  *middleware.TrafficStats
	responses *middleware.TrafficStats
}

func NewAdminHandler(db *storage.DB, svc *service.Service, upstream, responses *middleware.TrafficStats) *AdminHandler {
	return &AdminHandler{db: db, svc: svc, upstream: upstream, responses: responses}
}

type recentProbe struct {
	URL        string `json:"url"`
	Format     string `json:"format,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	BytesRead  int    `json:"bytes_read"`
	Hits       int64  `json:"hits"`
	AccessedAt string `json:"accessed_at"`
	ExpiresAt  string `json:"expires_at"`
}

type statsResponse struct {
	Cache    *storage.Stats             `json:"cache"`
	Upstream middleware.TrafficSnapshot `json:"upstream"`
	Served   middleware.TrafficSnapshot `json:"served"`
	Recent   []recentProbe              `json:"recent"`
}

// Stats serves GET /admin/stats. ?limit= bounds the recent list.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	stats, err := h.db.GetStats()
	if err != nil {
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	records, err := h.db.ListProbes(limit, 0)
	if err != nil {
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	resp := statsResponse{Cache: stats, Recent: make([]recentProbe, 0, len(records))}
	if h.upstream != nil {
		resp.Upstream = h.upstream.Snapshot(now)
	}
	if h.responses != nil {
		resp.Served = h.responses.Snapshot(now)
	}
	for _, rec := range records {
		resp.Recent = append(resp.Recent, recentProbe{
			URL:        rec.URL,
			Format:     rec.Format,
			Width:      rec.Width,
			Height:     rec.Height,
			ErrorKind:  rec.ErrorKind,
			BytesRead:  rec.BytesRead,
			Hits:       rec.Hits,
			AccessedAt: time.Unix(rec.AccessedAt, 0).UTC().Format(time.RFC3339),
			ExpiresAt:  time.Unix(rec.ExpiresAt, 0).UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// PurgeCache serves DELETE /admin/cache?url=.
func (h *AdminHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		jsonError(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	deleted, err := h.svc.Forget(raw)
	if err != nil {
		probeError(w, err)
		return
	}
	if !deleted {
		jsonError(w, "not cached", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Health serves GET /health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"cache_entries": stats.TotalEntries,
	})
}
