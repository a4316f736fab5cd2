// ABOUTME: Response helpers: JSON writers, content-negotiated 401s, robots, recovery
// ABOUTME: Internal detail is never exposed; errors surface as generic 500s

package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeRobots(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("User-agent: *\nDisallow: /\n"))
}

// writeChallenge is the terminal "no valid session" response, negotiated on
// the Accept header. API clients get a structured 401; non-HTML resource
// requests get a bare 401 with no-store so caches and service workers are
// never poisoned with a challenge body; navigations get the challenge page.
func (g *Gateway) writeChallenge(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")

	if prefersJSON(accept) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":        "Authentication required",
			"authRequired": true,
		})
		return
	}

	if !strings.Contains(accept, "text/html") {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Authentication required\n"))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(g.pages.Challenge(r.Context()))
}

// prefersJSON reports whether the Accept header ranks application/json ahead
// of text/html.
func prefersJSON(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		switch strings.TrimSpace(mediaType) {
		case "application/json":
			return true
		case "text/html":
			return false
		}
	}
	return false
}

// internalError logs the underlying error and answers with a generic 500.
// The request ID lets operators correlate the log line without leaking any
// internal detail to the caller.
func (g *Gateway) internalError(w http.ResponseWriter, r *http.Request, err error) {
	id := uuid.NewString()
	g.logger.Error("request failed", "error", err, "request_id", id, "host", r.Host, "path", r.URL.Path)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":     "Internal server error",
		"requestId": id,
	})
}

// recoverer converts panics anywhere in the dispatch chain into a generic
// 500. This is the single top-level catch; nothing below it recovers.
func (g *Gateway) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				id := uuid.NewString()
				g.logger.Error("panic handling request", "panic", rec, "request_id", id, "host", r.Host, "path", r.URL.Path)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error":     "Internal server error",
					"requestId": id,
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
