package router

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/apigate/apigate/pkg/errors"
	"github.com/apigate/apigate/pkg/serializer"
)

// Error codes as constants
const (
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// WriteError writes a structured error response.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code, message string, retryable bool, details map[string]interface{}) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// WriteStructuredError writes err as a structured response, deriving the
// code and retryable flag from the error classification.
func WriteStructuredError(w http.ResponseWriter, r *http.Request, statusCode int,
	err *apperrors.StructuredError, details map[string]interface{}) {

	WriteError(w, r, statusCode, string(err.Code), err.Message, err.Retryable(), details)
}
