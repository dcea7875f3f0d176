package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/shipbatch/internal/config"
	"github.com/JonMunkholm/shipbatch/internal/core"
)

// apiKey is one accepted key and the user it acts as, if any.
type apiKey struct {
	key  []byte
	user string
}

// parseAPIKeys reads entries of the form "key" or "user:key".
func parseAPIKeys(entries []string) []apiKey {
	keys := make([]apiKey, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		user, key, found := strings.Cut(e, ":")
		if !found {
			user, key = "", e
		}
		keys = append(keys, apiKey{key: []byte(key), user: user})
	}
	return keys
}

// APIKeyAuth returns middleware that validates the X-API-Key header against
// the configured keys and, for keys bound to a user, scopes the request to
// that user. If RequireAPIKey is false, all requests pass through.
// If RequireAPIKey is true but no keys are configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keys := parseAPIKeys(cfg.APIKeys)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get("X-API-Key")
			if presented == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
				return
			}

			user, ok := matchAPIKey(presented, keys)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
				return
			}

			if user != "" {
				r = r.WithContext(core.ContextWithUserID(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// matchAPIKey compares presented against every key in constant time and
// returns the user of the matching key.
func matchAPIKey(presented string, keys []apiKey) (string, bool) {
	var (
		matched int
		user    string
	)
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(presented), k.key) == 1 {
			matched = 1
			user = k.user
		}
	}
	return user, matched == 1
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + msg + `","message":"` + msg + `","code":"` + code + `"}`))
}
