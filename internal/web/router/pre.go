package router

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

type preKey struct{}

// preHandlers runs each pre-handler in order before next. A result is
// stored under its assign name and is visible to later pre-handlers.
func preHandlers(pre []plumbing.Pre, next http.Handler, logger *zap.Logger) http.Handler {
	if len(pre) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := make(map[string]any, len(pre))
		r = r.WithContext(context.WithValue(r.Context(), preKey{}, values))

		for _, p := range pre {
			result, err := p.Method(r)
			if err != nil {
				writePreError(w, r, p, err, logger)
				return
			}
			if p.Assign != "" {
				values[p.Assign] = result
			}
		}

		next.ServeHTTP(w, r)
	})
}

// PreValue returns the result a pre-handler assigned under name
func PreValue(r *http.Request, name string) (any, bool) {
	values, ok := r.Context().Value(preKey{}).(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := values[name]
	return v, ok
}

// PreValues returns a copy of every assigned pre-handler result
func PreValues(r *http.Request) map[string]any {
	values, _ := r.Context().Value(preKey{}).(map[string]any)
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func writePreError(w http.ResponseWriter, r *http.Request, p plumbing.Pre, err error, logger *zap.Logger) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		for k, values := range httpErr.Header {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
		WriteError(w, httpErr.Status, httpErr.Code, httpErr.Message)
		return
	}

	logger.Error("pre-handler failed",
		zap.String("assign", p.Assign),
		zap.String("name", p.Name),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	WriteError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
