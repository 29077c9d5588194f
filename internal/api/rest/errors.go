package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, body ErrorBody) {
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		body.TraceID = sc.TraceID().String()
	}
	writeJSON(w, status, ErrorResponse{Error: body})
}

// writeError maps an error onto a status code and envelope. Internal
// details are never sent to the runtime.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[jsonFieldName(fe)] = fe.Tag()
		}
		writeErrorBody(w, r, http.StatusBadRequest, ErrorBody{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  fields,
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message := appErr.Message
		if appErr.Type == apperrors.ErrorTypeInternal {
			message = "an internal error occurred"
		}
		writeErrorBody(w, r, apperrors.GetStatusCode(err), ErrorBody{Code: appErr.Code, Message: message})
		return
	}

	writeErrorBody(w, r, http.StatusInternalServerError, ErrorBody{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	})
}

// jsonFieldName turns TurnRequest.CallID into call_id using the json tag
// registered on the validator.
func jsonFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}
