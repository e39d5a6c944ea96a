package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/starford/souschef/internal/apperr"
	"github.com/starford/souschef/internal/assistant"
)

const maxJSONBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeResult maps a failed Result's kind onto an HTTP status.
func writeResult(w http.ResponseWriter, res assistant.Result) {
	status := http.StatusOK
	if !res.Success {
		switch res.Kind {
		case apperr.KindUnavailable.String():
			status = http.StatusServiceUnavailable
		case apperr.KindNotFound.String():
			status = http.StatusNotFound
		case apperr.KindInvalidTransition.String():
			status = http.StatusConflict
		case apperr.KindExtraction.String():
			status = http.StatusUnprocessableEntity
		case apperr.KindInvalidInput.String():
			status = http.StatusBadRequest
		default:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, res)
}
