package transport

import (
	"encoding/json"
	"net/http"

	errors "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/pkg/logger"
)

// BaseHandler carries the response helpers shared by every HTTP handler.
type BaseHandler struct{}

func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.LoggerWrapper().Error("failed to encode response", "error", err)
	}
}

func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.WriteJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
	})
}

// HandleServiceError maps domain errors onto HTTP responses. AppErrors carry
// their own status; anything else is a 500 with the detail kept out of the
// response body.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.IsAppError(err); ok {
		status, body := appErr.ToHTTPResponse()
		if appErr.Type == errors.ErrorTypeInternal || appErr.Type == errors.ErrorTypeGateway {
			logger.LoggerWrapper().Error("request failed",
				"error_type", appErr.Type,
				"error_code", appErr.Code,
				"error", appErr.Error())
		}
		h.WriteJSON(w, status, body)
		return
	}

	logger.LoggerWrapper().Error("unhandled service error", "error", err)
	h.WriteError(w, http.StatusInternalServerError, "internal server error")
}
