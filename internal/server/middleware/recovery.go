package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/observability"
)

// Recovery recovers from handler panics, logs the stack and answers with the
// standard error envelope.
func Recovery(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					requestID := GetRequestID(r.Context())

					if observability.ServerLogger != nil {
						observability.ServerLogger.Error("panic recovered",
							zap.Any("panic", rec),
							zap.String("path", r.URL.Path),
							zap.String("request_id", requestID),
							zap.ByteString("stack", debug.Stack()),
						)
					}
					if metrics != nil {
						metrics.PanicsTotal.Inc()
					}

					writeErrorResponse(w, "INTERNAL_ERROR", fmt.Sprintf("panic: %v", rec), requestID)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeErrorResponse writes the envelope directly (avoid circular import with
// the apierrors package, which depends on GetRequestID).
func writeErrorResponse(w http.ResponseWriter, code, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorDetail{Code: code, Message: message, RequestID: requestID},
	})
}
