package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

func Recover(fail func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					zerolog.Ctx(r.Context()).Error().
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					fail(w, r)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
