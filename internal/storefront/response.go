package storefront

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sternrassler/storefront/pkg/api"
	"github.com/rs/zerolog"
)

// Error codes in JSON error bodies.
const (
	CodeNotFound       = "not_found"
	CodeUnknownShop    = "unknown_shop"
	CodeBadRequest     = "bad_request"
	CodeValidation     = "validation_failed"
	CodeUpstream       = "upstream_error"
	CodeMissingCart    = "missing_cart"
	CodeInvalidPayload = "invalid_payload"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   bool              `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// responder writes at most one response. Later writes are dropped and logged,
// since several routes may fire for one request.
type responder struct {
	w       http.ResponseWriter
	logger  zerolog.Logger
	status  int
	written bool
}

func (rw *responder) json(status int, v any) {
	if rw.written {
		rw.logger.Warn().Int("status", status).Msg("Response already written")
		return
	}
	rw.written = true
	rw.status = status

	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(status)
	if err := json.NewEncoder(rw.w).Encode(v); err != nil {
		rw.logger.Error().Err(err).Msg("Failed to write response")
	}
}

func (rw *responder) success(fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	rw.json(http.StatusOK, body)
}

func (rw *responder) data(raw json.RawMessage) {
	if raw == nil {
		raw = json.RawMessage("null")
	}
	rw.success(map[string]any{"data": raw})
}

func (rw *responder) fail(status int, code, message string) {
	rw.json(status, errorBody{Error: true, Code: code, Message: message})
}

// upstream maps an API failure onto the response. Client errors of the
// commerce API keep their status; everything else is a bad gateway.
func (rw *responder) upstream(err error) {
	var respErr *api.ResponseError
	if errors.As(err, &respErr) && respErr.Class == api.ErrorClassClient {
		rw.fail(respErr.StatusCode, CodeUpstream, respErr.Message)
		return
	}
	rw.logger.Error().Err(err).Msg("Commerce API request failed")
	rw.fail(http.StatusBadGateway, CodeUpstream, "Upstream request failed")
}
