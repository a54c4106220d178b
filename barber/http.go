package barber

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HTTPLogger logs the duration, status, method and path of every request
func HTTPLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			initialTime := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			handler.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				// nothing written, net/http answers 200
				status = http.StatusOK
			}
			logger.Printf("http: time:%dms %d %s %s", time.Since(initialTime)/time.Millisecond, status, r.Method, r.URL.String())
		})
	}
}
