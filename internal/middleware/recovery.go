package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"guardian-inventory/pkg/apierror"
)

// Recovery is a middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Printf("PANIC: %s %s rid=%s: %v\n%s", r.Method, r.URL.Path, GetRequestID(r.Context()), err, debug.Stack())
				apierror.InternalError("internal server error").Write(w)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
