// Package auth protects the SSE server endpoints.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/sha1n/docindex/internal/config"
	"github.com/sha1n/docindex/internal/metrics"
)

// APIKeyHeader carries the API key when apikey auth is enabled.
const APIKeyHeader = "X-API-Key"

const realm = `Basic realm="docindex"`

// excludedPaths bypass authentication (probes and scrapers).
var excludedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

func isExcludedPath(path string) bool {
	return excludedPaths[path]
}

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// NewMiddleware creates the authentication middleware selected by settings.
func NewMiddleware(settings config.AuthSettings) (Middleware, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return withExclusions(basicAuth(settings.Basic)), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return withExclusions(apiKeyAuth(settings.APIKeys)), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

func withExclusions(auth Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		authed := auth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExcludedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			authed.ServeHTTP(w, r)
		})
	}
}

func basicAuth(settings config.BasicAuthSettings) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				reject(w, config.AuthTypeBasic, metrics.AuthReasonMissing, true)
				return
			}
			userMatch := equal(user, settings.Username)
			passMatch := equal(pass, settings.Password)
			if !userMatch || !passMatch {
				reject(w, config.AuthTypeBasic, metrics.AuthReasonInvalid, true)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func apiKeyAuth(apiKeys []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestAPIKey(r)
			if key == "" {
				reject(w, config.AuthTypeAPIKey, metrics.AuthReasonMissing, false)
				return
			}

			valid := false
			for _, validKey := range apiKeys {
				// no early exit: the comparison cost must not depend on key position
				if equal(key, validKey) {
					valid = true
				}
			}
			if !valid {
				reject(w, config.AuthTypeAPIKey, metrics.AuthReasonInvalid, false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestAPIKey reads the key from X-API-Key, falling back to a bearer token.
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func reject(w http.ResponseWriter, authType, reason string, challenge bool) {
	metrics.AuthRejectionsTotal.WithLabelValues(authType, reason).Inc()
	if challenge {
		w.Header().Set("WWW-Authenticate", realm)
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
