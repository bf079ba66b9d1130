package handler

import (
	"net/http"
)

// ProjectHeader is set on every /v1 response to the selected project name.
const ProjectHeader = "X-FinBuddy-Project"

// SelectedProjectMiddleware tags responses with the project that was
// selected when the request arrived.
func SelectedProjectMiddleware(selected func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p := selected(); p != "" {
				w.Header().Set(ProjectHeader, p)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimitBodyMiddleware caps request bodies at n bytes.
func LimitBodyMiddleware(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
