package middleware

import (
	"net/http"

	"github.com/ametnes/nesis-console/internal/request"
	"github.com/google/uuid"
)

// maxRequestIDLength bounds caller-supplied request ids.
const maxRequestIDLength = 128

// RequestID tags every request with an id, reusing a caller-supplied
// X-Request-ID when it is short enough. The id is echoed in the response
// and forwarded to the core API.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(request.RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		w.Header().Set(request.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(request.WithRequestID(r.Context(), id)))
	})
}
