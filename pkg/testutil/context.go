package testutil

import (
	"net/http"

	"gonogo/pkg/platform/middleware/apikey"
	"gonogo/pkg/requestcontext"
)

// WithCaller sets the caller identity the apikey middleware would derive.
func WithCaller(req *http.Request, caller string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithAPIKey sets the X-API-Key header and the matching caller identity, which
// is the state a request has after apikey.Identify.
func WithAPIKey(req *http.Request, key string) *http.Request {
	req.Header.Set(apikey.Header, key)
	return WithCaller(req, apikey.CallerFor(key, ""))
}

// WithRequestID sets the request ID in the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
