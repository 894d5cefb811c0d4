package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TestContext is the per-scenario HTTP client state shared by every step
// package. Steps see it through their own narrow interfaces.
type TestContext struct {
	BaseURL    string
	APIKey     string
	AdminToken string

	client       *http.Client
	headers      map[string]string
	lastStatus   int
	lastBody     []byte
	lastHeader   http.Header
	lastDuration time.Duration
}

func NewTestContext(baseURL, apiKey, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 30 * time.Second},
		headers:    map[string]string{},
	}
}

// Reset clears response state and per-scenario headers.
func (tc *TestContext) Reset() {
	tc.headers = map[string]string{}
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
}

// SetHeader adds a header to every following request in the scenario.
func (tc *TestContext) SetHeader(name, value string) {
	tc.headers[name] = value
}

func (tc *TestContext) UseAPIKey(key string) {
	tc.SetHeader("X-API-Key", key)
}

func (tc *TestContext) UseConfiguredAPIKey() {
	if tc.APIKey != "" {
		tc.UseAPIKey(tc.APIKey)
	}
}

func (tc *TestContext) UseAdminToken() {
	tc.SetHeader("X-Admin-Token", tc.AdminToken)
}

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
		if ct, ok := tc.headers["Content-Type"]; ok {
			contentType = ct
		}
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader, contentType)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, "")
}

func (tc *TestContext) do(method, path string, body io.Reader, contentType string) error {
	url := path
	if !strings.HasPrefix(path, "http") {
		url = tc.BaseURL + path
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	for k, v := range tc.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastDuration = time.Since(start)
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastResponseStatus() int     { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte    { return tc.lastBody }
func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(name)
}

// GetResponseField reads a gjson path from the last response body.
func (tc *TestContext) GetResponseField(path string) (gjson.Result, error) {
	if !gjson.ValidBytes(tc.lastBody) {
		return gjson.Result{}, fmt.Errorf("response body is not JSON: %q", truncate(tc.lastBody))
	}
	res := gjson.GetBytes(tc.lastBody, path)
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("field %q not in response: %s", path, truncate(tc.lastBody))
	}
	return res, nil
}

func truncate(b []byte) string {
	if len(b) > 512 {
		return string(b[:512]) + "..."
	}
	return string(b)
}
