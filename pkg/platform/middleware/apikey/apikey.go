// Package apikey authenticates callers by the X-API-Key header and records a
// hashed caller identity in the request context.
package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"

	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/httputil"
	"gonogo/pkg/requestcontext"
)

// Header carries the caller's API key.
const Header = "X-API-Key"

// Hash returns the stored form of an API key. Raw keys never leave the middleware.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// CallerFor derives the caller identity used for rate limiting and job
// ownership: the hashed key when present, otherwise the client IP.
func CallerFor(key, clientIP string) string {
	if key != "" {
		return "key:" + Hash(key)
	}
	if clientIP == "" {
		clientIP = "anonymous"
	}
	return "ip:" + clientIP
}

// Identify stores the caller identity without enforcing a key. It runs ahead of
// the rate limiter so every request is attributed. A key that does not match
// expectedKey is ignored and the caller is keyed by client IP, so unknown keys
// cannot mint fresh limiter buckets. An empty expectedKey accepts any key.
func Identify(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := r.Header.Get(Header)
			if !matches(key, expectedKey) {
				key = ""
			}
			caller := CallerFor(key, requestcontext.ClientIP(ctx))
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

func matches(key, expectedKey string) bool {
	if expectedKey == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(expectedKey)) == 1
}

// Require rejects requests whose X-API-Key does not match the configured key.
// An empty configured key leaves the routes open.
func Require(expectedKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !matches(r.Header.Get(Header), expectedKey) {
				ctx := r.Context()
				if logger != nil {
					logger.WarnContext(ctx, "invalid api key",
						"request_id", requestcontext.RequestID(ctx),
						"client_ip", requestcontext.ClientIP(ctx),
					)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
