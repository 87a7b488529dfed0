package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxBodyBytes = 1 << 20 // 1MB

const internalErrorMessage = "Internal server error"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// responder writes internal errors, exposing their detail only when enabled.
type responder struct {
	exposeErrors bool
}

func (rs responder) internalMessage(err error) string {
	if rs.exposeErrors {
		return err.Error()
	}
	return internalErrorMessage
}

func (rs responder) internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
		"request_id", chimw.GetReqID(r.Context()),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse(rs.internalMessage(err)))
}

// decodeBody reads a size-limited JSON body, checks it against schema and
// decodes it into dst. On failure the response has been written and false
// is returned.
func decodeBody(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	if err := schema.Validate(doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body: "+schemaMessage(err)))
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}
