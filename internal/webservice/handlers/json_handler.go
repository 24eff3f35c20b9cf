package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// DefaultMaxRequestBytes bounds request bodies when no limit is configured.
const DefaultMaxRequestBytes = 1 << 20

// RequestIDHeader carries the request id back to the host.
const RequestIDHeader = "X-Request-Id"

// statusError is an error answered with a specific status and error code.
type statusError struct {
	status int
	code   string
	err    error
}

func (e statusError) Error() string { return e.err.Error() }
func (e statusError) Unwrap() error { return e.err }

// errorBody is the JSON body of every error answer.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ReqID   string `json:"req_id"`
}

// jsonHandler decodes a JSON request body into Req and answers with the JSON encoding of what serve returns.
type jsonHandler[Req any] struct {
	name          string
	maxBytes      int64
	successStatus int
	serve         func(ctx context.Context, req Req) (any, error)

	log *slog.Logger
}

func newJSONHandler[Req any](name string, o options, serve func(context.Context, Req) (any, error)) *jsonHandler[Req] {
	return &jsonHandler[Req]{
		name:          name,
		maxBytes:      o.maxBytes,
		successStatus: http.StatusOK,
		serve:         serve,
		log:           o.log,
	}
}

// ServeHTTP handles a JSON request.
func (h *jsonHandler[Req]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(w)
	h.log.Info("Request recv'd", "req_id", reqID, "handler", h.name)

	var req Req
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, reqID, statusError{status: http.StatusRequestEntityTooLarge, code: "too_large", err: err})
		} else {
			writeError(w, reqID, statusError{status: http.StatusBadRequest, code: "invalid_json", err: err})
		}
		h.log.Warn("Invalid request body", "req_id", reqID, "handler", h.name, "err", err)
		return
	}

	resp, err := h.serve(r.Context(), req)
	if err != nil {
		h.log.Warn("Request failed", "req_id", reqID, "handler", h.name, "err", err)
		writeError(w, reqID, err)
		return
	}

	writeJSON(w, h.successStatus, resp)
	h.log.Debug("Request served", "req_id", reqID, "handler", h.name)
}

// requestID generates the id of a request and sets it on the answer.
func requestID(w http.ResponseWriter) string {
	reqID := uuid.New().String()
	w.Header().Set(RequestIDHeader, reqID)
	return reqID
}

// writeJSON answers with the JSON encoding of v. A nil v is written as null.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, reqID string, err error) {
	se := statusError{status: http.StatusInternalServerError, code: "internal_error", err: err}
	errors.As(err, &se)
	writeJSON(w, se.status, errorBody{Code: se.code, Message: err.Error(), ReqID: reqID})
}
