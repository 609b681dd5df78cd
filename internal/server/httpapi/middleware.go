package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/logging"
	"github.com/dmitrijs2005/photoforge/internal/server/services"
	"github.com/google/uuid"
)

type ctxKey string

const principalKey ctxKey = "principal"

const requestIDHeader = "X-Request-ID"

// PrincipalFromContext returns the caller set by the auth middleware.
func PrincipalFromContext(ctx context.Context) *services.Principal {
	p, _ := ctx.Value(principalKey).(*services.Principal)
	return p
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// accessLog tags the request context with a request id, echoed in the
// X-Request-ID header, and logs every request once it has been served.
func accessLog(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			r = r.WithContext(logging.ContextWith(r.Context(), "request_id", id))

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(sw, r)
			l.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr)
		})
	}
}

func recoverer(l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					l.Error(r.Context(), "panic serving request",
						"panic", p,
						"method", r.Method,
						"path", r.URL.Path,
						"stack_trace", string(debug.Stack()))
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: http.StatusText(http.StatusInternalServerError)})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth resolves the bearer access token into a Principal.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || token == "" {
			h.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		p, err := h.tokens.Authenticate(r.Context(), token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
