// Package providers talks to the external generation services. A provider
// accepts a submission, answers with a request id and later reports the
// outcome through a signed webhook.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/server/config"
)

// Normalized callback statuses. Anything else is passed through verbatim.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

type Submission struct {
	Endpoint   string
	Input      map[string]any
	WebhookURL string
}

// Callback is a provider webhook reduced to what reconciliation needs.
type Callback struct {
	RequestID   string
	Status      string
	Artifacts   []string
	ErrorDetail string
}

type Provider interface {
	Name() string
	Submit(ctx context.Context, s Submission) (string, error)

	// VerifySignature returns an error wrapping common.ErrSignatureInvalid
	// unless body carries a valid signature issued within the tolerance
	// window around now.
	VerifySignature(header http.Header, body []byte, now time.Time) error

	ParseCallback(body []byte) (*Callback, error)
}

// Registry maps provider names, as used in the pricing catalog, to clients.
type Registry map[string]Provider

func NewRegistry(cfg *config.Config, client *http.Client) Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return Registry{
		config.ProviderFal:       NewFal(cfg.FalBaseURL, cfg.FalKey, cfg.FalWebhookSecret, cfg.WebhookTolerance, client),
		config.ProviderReplicate: NewReplicate(cfg.ReplicateBaseURL, cfg.ReplicateToken, cfg.ReplicateWebhookSecret, cfg.WebhookTolerance, client),
	}
}

func (r Registry) Get(name string) (Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

func postJSON(ctx context.Context, client *http.Client, url, authorization string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authorization)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func withinTolerance(ts, now time.Time, tolerance time.Duration) bool {
	d := now.Sub(ts)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
