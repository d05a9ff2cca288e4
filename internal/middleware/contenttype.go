package middleware

import (
	"mime"
	"net/http"
)

// ContentType rejects body-carrying requests that are not JSON. Requests
// without a body pass through untouched.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut:
			ct := r.Header.Get("Content-Type")
			if ct == "" {
				// An empty-body POST (e.g. a toggle with no date) may omit it.
				if r.ContentLength > 0 {
					http.Error(w, "Content-Type header is required", http.StatusBadRequest)
					return
				}
				break
			}
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
