package main

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// recoverer logs panics from handlers and answers 500, keeping the process
// alive. Availability wins over fail-fast here.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("[http] handler panic")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
