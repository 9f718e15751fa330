package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/vault-inventory/internal/auth"
)

// publicPaths, and anything below them, are served without credentials.
var publicPaths = []string{"/health", "/ready", "/metrics"}

// streamPath is the read-only snapshot stream. Browsers cannot attach
// credentials to a WebSocket handshake.
const streamPath = "/ws"

// challenges maps authentication failures to their WWW-Authenticate value.
var challenges = []struct {
	err    error
	header string
}{
	{auth.ErrUnauthenticated, `Basic realm="vault", API-Key`},
	{auth.ErrInvalidCredentials, `Basic realm="vault"`},
	{auth.ErrInvalidAPIKey, "API-Key"},
}

// Auth authenticates every request that is not public, a CORS preflight
// or a WebSocket handshake on the snapshot stream. Failures get 401 with a challenge header.
// Principals that may not mutate the vault get 403 on POST, PUT, PATCH
// and DELETE. The AuthInfo of accepted requests is put in the context.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypassAuth(r) {
				next.ServeHTTP(w, r)
				return
			}

			info, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				if challenge := challengeFor(err); challenge != "" {
					w.Header().Set("WWW-Authenticate", challenge)
				}
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if isMutation(r.Method) && !info.CanMutate() {
				logger.Warn("vault mutation forbidden",
					zap.String("subject", info.Subject),
					zap.String("role", string(info.Role)),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, auth.ErrForbidden.Error())
				return
			}

			logger.Debug("authenticated",
				zap.String("subject", info.Subject),
				zap.String("auth_method", string(info.Method)),
				zap.String("role", string(info.Role)),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithAuthInfo(r.Context(), info)))
		})
	}
}

func bypassAuth(r *http.Request) bool {
	return isPublicPath(r.URL.Path) ||
		r.Method == http.MethodOptions ||
		isStreamHandshake(r)
}

// isStreamHandshake matches only GET /ws carrying a WebSocket upgrade. The
// Upgrade header alone proves nothing about the route being served.
func isStreamHandshake(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		r.URL.Path == streamPath &&
		strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// isPublicPath matches /health and /health/live but not /healthz.
func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func challengeFor(err error) string {
	for _, c := range challenges {
		if errors.Is(err, c.err) {
			return c.header
		}
	}
	return ""
}
