// Package httputil holds the small set of response helpers shared by
// every handler in internal/api: JSON encoding, typed error rendering,
// and a streamed-array writer for collection endpoints that must flush
// incrementally instead of buffering the whole result set.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "ims/pkg/domainerrors"
)

// WriteJSON encodes v as the response body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the wire shape for error responses. error_description is
// omitted for CodeInternal so implementation detail never reaches the
// client; WriteError itself does not log it.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError renders err as a JSON error response, choosing the HTTP
// status from its domainerrors.Code. Non-domain errors are treated as
// internal errors and their detail is never written to the response
// body.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		body.ErrorDescription = dErrors.MessageOf(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeAndPrepare decodes the request body into a value of type T,
// writing a bad_request error and returning ok=false on failure. Every
// handler that accepts a JSON body uses this instead of hand-rolling
// its own decode-and-error dance.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		var zero T
		return zero, false
	}
	return v, true
}

// ArrayWriter streams a JSON array to the client one element at a time,
// flushing after each element. Collection endpoints (personnel,
// incident lists) use this so a large roster doesn't have to be
// buffered in memory before the first byte is written.
type ArrayWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	enc     *json.Encoder
	wrote   bool
}

// NewArrayWriter begins a streamed JSON array response with the given
// status code.
func NewArrayWriter(w http.ResponseWriter, status int) *ArrayWriter {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	flusher, _ := w.(http.Flusher)
	_, _ = w.Write([]byte{'['})
	return &ArrayWriter{w: w, flusher: flusher, enc: json.NewEncoder(w)}
}

// WriteItem encodes and writes a single array element, inserting the
// separating comma when needed, then flushes the connection.
func (a *ArrayWriter) WriteItem(v any) error {
	if a.wrote {
		if _, err := a.w.Write([]byte{','}); err != nil {
			return err
		}
	}
	a.wrote = true
	if err := a.enc.Encode(v); err != nil {
		return err
	}
	if a.flusher != nil {
		a.flusher.Flush()
	}
	return nil
}

// Close writes the closing bracket, completing the array.
func (a *ArrayWriter) Close() error {
	_, err := a.w.Write([]byte{']'})
	if a.flusher != nil {
		a.flusher.Flush()
	}
	return err
}
