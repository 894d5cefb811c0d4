package apikey

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"gonogo/pkg/requestcontext"
)

func TestCallerFor(t *testing.T) {
	assert.Equal(t, "key:"+Hash("k1"), CallerFor("k1", "10.0.0.1"))
	assert.Equal(t, "ip:10.0.0.1", CallerFor("", "10.0.0.1"))
	assert.Equal(t, "ip:anonymous", CallerFor("", ""))
	assert.NotContains(t, CallerFor("super-secret", ""), "super-secret")
}

func TestIdentify(t *testing.T) {
	tests := map[string]struct {
		expected string
		key      string
		want     string
	}{
		"configured key":            {expected: "k1", key: "k1", want: CallerFor("k1", "")},
		"unknown key falls back":    {expected: "k1", key: "random-1", want: "ip:anonymous"},
		"missing key falls back":    {expected: "k1", want: "ip:anonymous"},
		"open mode keys any caller": {key: "k2", want: CallerFor("k2", "")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var caller string
			h := Identify(tt.expected)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				caller = requestcontext.Caller(r.Context())
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				r.Header.Set(Header, tt.key)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)

			assert.Equal(t, tt.want, caller)
		})
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("open when no key configured", func(t *testing.T) {
		w := httptest.NewRecorder()
		Require("", nil)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(Header, "nope")
		w := httptest.NewRecorder()
		Require("right", nil)(ok).ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid api key")
	})

	t.Run("accepts matching key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(Header, "right")
		w := httptest.NewRecorder()
		Require("right", nil)(ok).ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
