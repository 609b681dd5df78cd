package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/photoforge/internal/common"
)

const (
	falTimestampHeader = "X-Webhook-Timestamp"
	falSignatureHeader = "X-Webhook-Signature"
)

// Fal submits to the fal.ai queue API.
type Fal struct {
	baseURL   string
	key       string
	secret    []byte
	tolerance time.Duration
	client    *http.Client
}

func NewFal(baseURL, key, webhookSecret string, tolerance time.Duration, client *http.Client) *Fal {
	return &Fal{
		baseURL:   strings.TrimRight(baseURL, "/"),
		key:       key,
		secret:    []byte(webhookSecret),
		tolerance: tolerance,
		client:    client,
	}
}

func (f *Fal) Name() string { return "fal" }

func (f *Fal) Submit(ctx context.Context, s Submission) (string, error) {
	endpoint := f.baseURL + "/" + strings.TrimLeft(s.Endpoint, "/") + "?fal_webhook=" + url.QueryEscape(s.WebhookURL)

	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := postJSON(ctx, f.client, endpoint, "Key "+f.key, s.Input, &resp); err != nil {
		return "", fmt.Errorf("fal submit: %w", err)
	}
	if resp.RequestID == "" {
		return "", fmt.Errorf("fal submit: empty request id")
	}
	return resp.RequestID, nil
}

func (f *Fal) VerifySignature(header http.Header, body []byte, now time.Time) error {
	if len(f.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", common.ErrSignatureInvalid)
	}

	rawTS := header.Get(falTimestampHeader)
	sec, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", common.ErrSignatureInvalid)
	}
	if !withinTolerance(time.Unix(sec, 0), now, f.tolerance) {
		return fmt.Errorf("%w: timestamp outside tolerance", common.ErrSignatureInvalid)
	}

	got, err := hex.DecodeString(header.Get(falSignatureHeader))
	if err != nil || len(got) == 0 {
		return fmt.Errorf("%w: malformed signature", common.ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte(rawTS))
	mac.Write([]byte("."))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return fmt.Errorf("%w: mismatch", common.ErrSignatureInvalid)
	}
	return nil
}

type falFile struct {
	URL string `json:"url"`
}

type falCallback struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
	Payload   *struct {
		Images            []falFile `json:"images"`
		Video             *falFile  `json:"video"`
		DiffusersLoraFile *falFile  `json:"diffusers_lora_file"`
	} `json:"payload"`
}

func (f *Fal) ParseCallback(body []byte) (*Callback, error) {
	var in falCallback
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	if in.RequestID == "" {
		return nil, fmt.Errorf("%w: missing request_id", common.ErrInvalidRequest)
	}

	cb := &Callback{RequestID: in.RequestID, Status: in.Status, ErrorDetail: in.Error}
	if p := in.Payload; p != nil {
		for _, img := range p.Images {
			if img.URL != "" {
				cb.Artifacts = append(cb.Artifacts, img.URL)
			}
		}
		if p.Video != nil && p.Video.URL != "" {
			cb.Artifacts = append(cb.Artifacts, p.Video.URL)
		}
		if p.DiffusersLoraFile != nil && p.DiffusersLoraFile.URL != "" {
			cb.Artifacts = append(cb.Artifacts, p.DiffusersLoraFile.URL)
		}
	}
	return cb, nil
}
