package handler

import (
	"net/http"

	"fastsize/internal/preview"
	"fastsize/internal/service"
)

type PreviewHandler struct {
	svc *service.Service
}

func NewPreviewHandler(svc *service.Service) *PreviewHandler {
	return &PreviewHandler{svc: svc}
}

type previewCandidate struct {
	Source preview.Source `json:"source"`
	batchItem
}

type previewResponse struct {
	URL        string             `json:"url"`
	Best       *batchItem         `json:"best"`
	Candidates []previewCandidate `json:"candidates"`
}

// ServeHTTP serves GET /preview?url=.
func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		jsonError(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	res, err := h.svc.Preview(r.Context(), raw)
	if err != nil {
		probeError(w, err)
		return
	}

	resp := previewResponse{URL: res.URL, Candidates: make([]previewCandidate, len(res.Items))}
	for i, it := range res.Items {
		resp.Candidates[i] = previewCandidate{Source: res.Candidates[i].Source, batchItem: newBatchItem(it)}
	}
	if best, ok := res.Best(); ok {
		b := newBatchItem(best)
		resp.Best = &b
	}
	writeJSON(w, http.StatusOK, resp)
}
