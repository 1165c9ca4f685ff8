package handler

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is needed by the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// LoggerMiddleware logs every request with its status and duration.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("Method: %s | URL: %s | Status: %d | Duration: %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// requireSession lets a request through only while someone is signed in.
// Browsers are sent to the login screen, JSON clients get 401.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := h.session.Current()
		if user == nil {
			if wantsJSON(r) {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			http.Redirect(w, r, "/sns/login", http.StatusFound)
			return
		}
		next(w, r.WithContext(withViewer(r.Context(), user)))
	}
}

func applyMiddleware(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
