package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON body sent for every failed request
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler converts errors into HTTP responses
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates an error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes the appropriate HTTP response for err
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	requestID := r.Header.Get("X-Request-ID")

	var status int
	var response ErrorResponse

	if de := AsDomainError(err); de != nil {
		status = de.HTTPStatus()
		response = ErrorResponse{
			Error:     true,
			Type:      string(de.Type),
			Code:      de.Code,
			Message:   de.Message,
			Details:   de.Details,
			Retryable: de.Retryable,
			RequestID: requestID,
		}
		h.logError(r, de, status)
	} else {
		status = http.StatusInternalServerError
		message := "An unexpected error occurred"
		if h.debug {
			message = err.Error()
		}
		response = ErrorResponse{
			Error:     true,
			Type:      string(ErrorTypeInternal),
			Code:      "INTERNAL_ERROR",
			Message:   message,
			RequestID: requestID,
		}
		h.logger.Error("Unhandled error",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		h.logger.Error("Failed to encode error response", zap.Error(encodeErr))
	}
}

// logError logs a DomainError at a severity matching its class: caller
// mistakes are noise at error level, infrastructure failures are not
func (h *ErrorHandler) logError(r *http.Request, de *DomainError, status int) {
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("code", de.Code),
		zap.Int("status", status),
	}
	if de.Cause != nil {
		fields = append(fields, zap.NamedError("cause", de.Cause))
	}

	switch de.Type {
	case ErrorTypeInternal, ErrorTypeStorage:
		h.logger.Error("Request failed", fields...)
	case ErrorTypeConflict:
		h.logger.Info("Request conflicted", fields...)
	default:
		h.logger.Debug("Request rejected", fields...)
	}
}
