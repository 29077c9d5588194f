package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/telemetry"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/intake"
)

const maxBodySize = 1 << 20

// Handlers serves the voice runtime's webhook calls
type Handlers struct {
	intake   intake.Service
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandlers creates the call handlers
func NewHandlers(svc intake.Service, logger *zap.Logger) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{intake: svc, validate: v, logger: logger}
}

// Turn handles POST /v1/calls/turn
func (h *Handlers) Turn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.intake.HandleTurn(r.Context(), req.toService())
	if err != nil {
		telemetry.WithContext(r.Context(), h.logger).Warn("turn rejected",
			zap.String("call_id", req.CallID), zap.Error(err))
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// EndCall handles POST /v1/calls/end
func (h *Handlers) EndCall(w http.ResponseWriter, r *http.Request) {
	var req EndCallRequest
	if !h.decode(w, r, &req) {
		return
	}

	svcReq, err := req.toService()
	if err != nil {
		writeError(w, r, apperrors.NewValidationError("INVALID_STATUS", err.Error()))
		return
	}

	resp, err := h.intake.EndCall(r.Context(), svcReq)
	if err != nil {
		telemetry.WithContext(r.Context(), h.logger).Error("call end failed",
			zap.String("call_id", req.CallID), zap.Error(err))
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads and validates a JSON body, writing the error response itself
// when it fails.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		code, message := "INVALID_JSON", "request body is not valid JSON"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeErrorBody(w, r, http.StatusRequestEntityTooLarge, ErrorBody{Code: "BODY_TOO_LARGE", Message: "request body too large"})
			return false
		case errors.Is(err, io.EOF):
			message = "request body is empty"
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			code, message = "UNKNOWN_FIELD", err.Error()
		}
		writeErrorBody(w, r, http.StatusBadRequest, ErrorBody{Code: code, Message: message})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}
