package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/my-other-app/moa-backend/pkg/logger"
)

// RequestID honors an inbound X-Trace-ID, minting one when absent, and binds
// it to the request's context logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "trace_id", traceID)
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
