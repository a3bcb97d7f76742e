package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"fastsize/internal/fetch"
	"fastsize/internal/probe"
)

// jsonError sends {"error": message} with the given status.
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape of a failed probe.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// classify maps a service error to an HTTP status and a response body.
func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var se *fetch.StatusError
	switch {
	case errors.Is(err, fetch.ErrInvalidURL):
		body.Kind = "invalid_url"
		return http.StatusBadRequest, body
	case errors.As(err, &se):
		body.Kind = "upstream_status"
		return http.StatusBadGateway, body
	}
	if kind := probe.KindOf(err); kind != 0 {
		body.Kind = kind.String()
		if kind == probe.KindTimeout {
			return http.StatusGatewayTimeout, body
		}
		return http.StatusUnprocessableEntity, body
	}
	body.Kind = "upstream"
	return http.StatusBadGateway, body
}

func probeError(w http.ResponseWriter, err error) {
	code, body := classify(err)
	writeJSON(w, code, body)
}
