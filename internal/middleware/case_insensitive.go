package middleware

import (
	"net/http"
	"strings"
)

// CaseInsensitive lower-cases request paths so links scanned from
// upper-case QR codes (HTTPS://HOST/API/PROCESSES/4) resolve. Every route
// is lower case.
func CaseInsensitive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lower := strings.ToLower(r.URL.Path); lower != r.URL.Path {
			r.URL.Path = lower
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}
