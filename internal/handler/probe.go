package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"fastsize/internal/service"
)

// maxBatchBody caps the JSON body of a batch request.
const maxBatchBody = 64 << 10

type ProbeHandler struct {
	svc     *service.Service
	maxURLs int
}

func NewProbeHandler(svc *service.Service, maxURLs int) *ProbeHandler {
	return &ProbeHandler{svc: svc, maxURLs: maxURLs}
}

// Probe serves GET /probe?url=.
func (h *ProbeHandler) Probe(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		jsonError(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	res, err := h.svc.Probe(r.Context(), raw)
	if err != nil {
		probeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

// batchItem is one entry of a batch or preview response. Exactly one of
// Result or Error is set.
type batchItem struct {
	URL    string          `json:"url"`
	Result *service.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"kind,omitempty"`
}

func newBatchItem(it service.Item) batchItem {
	out := batchItem{URL: it.URL}
	if it.Err != nil {
		_, body := classify(it.Err)
		out.Error, out.Kind = body.Error, body.Kind
		return out
	}
	res := it.Result
	out.Result = &res
	return out
}

// Batch serves POST /probe/batch with {"urls": [...]}.
func (h *ProbeHandler) Batch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBody)

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.URLs) == 0 {
		jsonError(w, "urls is empty", http.StatusBadRequest)
		return
	}
	if len(req.URLs) > h.maxURLs {
		jsonError(w, fmt.Sprintf("too many urls: %d > %d", len(req.URLs), h.maxURLs), http.StatusRequestEntityTooLarge)
		return
	}

	items := h.svc.ProbeBatch(r.Context(), req.URLs)
	results := make([]batchItem, len(items))
	for i, it := range items {
		results[i] = newBatchItem(it)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
