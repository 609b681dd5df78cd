package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
)

// Replicate submits predictions to api.replicate.com. Webhooks are signed
// with the standard-webhooks scheme.
type Replicate struct {
	baseURL   string
	token     string
	secret    []byte
	tolerance time.Duration
	client    *http.Client
}

func NewReplicate(baseURL, token, webhookSecret string, tolerance time.Duration, client *http.Client) *Replicate {
	secret, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(webhookSecret, "whsec_"))
	if err != nil {
		// An undecodable secret rejects every webhook.
		secret = nil
	}
	return &Replicate{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		secret:    secret,
		tolerance: tolerance,
		client:    client,
	}
}

func (r *Replicate) Name() string { return "replicate" }

func (r *Replicate) Submit(ctx context.Context, s Submission) (string, error) {
	endpoint := r.baseURL + "/v1/models/" + strings.Trim(s.Endpoint, "/") + "/predictions"

	payload := map[string]any{
		"input":                 s.Input,
		"webhook":               s.WebhookURL,
		"webhook_events_filter": []string{"completed"},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, r.client, endpoint, "Bearer "+r.token, payload, &resp); err != nil {
		return "", fmt.Errorf("replicate submit: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("replicate submit: empty prediction id")
	}
	return resp.ID, nil
}

func (r *Replicate) VerifySignature(header http.Header, body []byte, now time.Time) error {
	if len(r.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", common.ErrSignatureInvalid)
	}

	id := header.Get("webhook-id")
	rawTS := header.Get("webhook-timestamp")
	if id == "" || rawTS == "" {
		return fmt.Errorf("%w: missing headers", common.ErrSignatureInvalid)
	}
	sec, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", common.ErrSignatureInvalid)
	}
	if !withinTolerance(time.Unix(sec, 0), now, r.tolerance) {
		return fmt.Errorf("%w: timestamp outside tolerance", common.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(id + "." + rawTS + "."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, candidate := range strings.Fields(header.Get("webhook-signature")) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return fmt.Errorf("%w: mismatch", common.ErrSignatureInvalid)
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

func (r *Replicate) ParseCallback(body []byte) (*Callback, error) {
	var in replicatePrediction
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	if in.ID == "" {
		return nil, fmt.Errorf("%w: missing id", common.ErrInvalidRequest)
	}

	cb := &Callback{RequestID: in.ID}
	switch in.Status {
	case "succeeded":
		cb.Status = StatusOK
	case "failed", "canceled":
		cb.Status = StatusError
	default:
		cb.Status = in.Status
	}
	cb.Artifacts = replicateOutputURLs(in.Output)
	cb.ErrorDetail = replicateError(in.Error)
	return cb, nil
}

// replicateOutputURLs accepts the output shapes models produce: a single
// URL, a list of URLs, or an object of named URLs (trainers return weights
// that way).
func replicateOutputURLs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var one string
	if json.Unmarshal(raw, &one) == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}

	var many []string
	if json.Unmarshal(raw, &many) == nil {
		var out []string
		for _, u := range many {
			if u != "" {
				out = append(out, u)
			}
		}
		return out
	}

	var named map[string]any
	if json.Unmarshal(raw, &named) == nil {
		if w, ok := named["weights"].(string); ok && w != "" {
			return []string{w}
		}
	}
	return nil
}

func replicateError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
