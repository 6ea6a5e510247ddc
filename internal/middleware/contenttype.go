package middleware

import (
	"net/http"
	"strings"
)

// ContentType requires JSON bodies on POST and PUT. Bodiless requests pass
// through so handlers can answer them with their own validation message.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && r.ContentLength != 0 {
			contentType := strings.ToLower(r.Header.Get("Content-Type"))
			if contentType == "" {
				respondErrorJSON(w, http.StatusBadRequest, "Content-Type header is required", nopLogger)
				return
			}
			if !strings.HasPrefix(contentType, "application/json") {
				respondErrorJSON(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nopLogger)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
