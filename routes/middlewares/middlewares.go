package middlewares

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/freewill-survey/httpx"
	"github.com/mbolis/freewill-survey/log"
)

// Logger writes one structured entry per request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// Recoverer turns a panicking handler into a 500 with a JSON detail.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			log.Debugf("http.panic: %s", debug.Stack())
			httpx.LogStatusMsg(w, r, http.StatusInternalServerError, log.ErrorLevel, "http.panic", "%v", rvr)
		}()

		next.ServeHTTP(w, r)
	})
}
