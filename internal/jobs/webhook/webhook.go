// Package webhook delivers job completion callbacks.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SignatureHeader carries "sha256=<hex HMAC-SHA256 of the body>".
const SignatureHeader = "X-Elig-Signature"

const defaultTimeout = 10 * time.Second

// Payload is the completed job summary posted to the callback URL.
type Payload struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	Total       int       `json:"total"`
	Completed   int       `json:"completed"`
	Errored     int       `json:"errored"`
	CompletedAt time.Time `json:"completed_at"`
}

// Notifier posts one signed callback per call. It never retries.
type Notifier struct {
	client *http.Client
	secret []byte
}

type Option func(*Notifier)

// WithSigningSecret enables the signature header. An empty secret leaves
// callbacks unsigned.
func WithSigningSecret(secret string) Option {
	return func(n *Notifier) {
		if secret != "" {
			n.secret = []byte(secret)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the client, keeping its own timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

func New(opts ...Option) *Notifier {
	n := &Notifier{client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value in constant time.
func Verify(secret, body []byte, header string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(header))
}

// Notify makes exactly one POST attempt. Any non-2xx response is an error.
func (n *Notifier) Notify(ctx context.Context, url string, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(n.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
