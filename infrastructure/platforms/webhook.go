package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	pkgError "github.com/AzielCF/az-social/pkg/error"
	pkgUtils "github.com/AzielCF/az-social/pkg/utils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/domain/platform"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	defaultWebhookTimeout = 90 * time.Second
	defaultMaxAttempts    = 3
)

// WebhookPublisher hands a post to an HTTP bridge that owns the platform session.
type WebhookPublisher struct {
	Platform    string
	URL         string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	Client      *fasthttp.Client
}

func NewWebhookPublisher(platform, url, secret string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookPublisher{
		Platform:    platform,
		URL:         url,
		Secret:      secret,
		Timeout:     timeout,
		MaxAttempts: defaultMaxAttempts,
		Backoff:     time.Second,
		Client: &fasthttp.Client{
			Name:                "az-social",
			MaxConnsPerHost:     8,
			ReadTimeout:         timeout,
			WriteTimeout:        30 * time.Second,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

type webhookPayload struct {
	PostID    string           `json:"post_id,omitempty"`
	Platform  string           `json:"platform"`
	Kind      common.MediaKind `json:"media_kind"`
	FileName  string           `json:"file_name"`
	ImagePath string           `json:"image_path,omitempty"`
	VideoPath string           `json:"video_path,omitempty"`
	Caption   string           `json:"caption"`
}

type webhookResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (w *WebhookPublisher) Publish(ctx context.Context, media common.Publishable, caption string) (string, error) {
	postID, _ := platform.PostIDFrom(ctx)
	payload := webhookPayload{
		PostID:   postID,
		Platform: w.Platform,
		Kind:     media.Kind(),
		FileName: filepath.Base(media.Path()),
		Caption:  caption,
	}
	if media.IsVideo() {
		payload.VideoPath = media.Path()
	} else {
		payload.ImagePath = media.Path()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", pkgError.WebhookError(fmt.Sprintf("Failed to marshal body: %v", err))
	}
	signature, err := pkgUtils.GetMessageDigestOrSignature(body, []byte(w.Secret))
	if err != nil {
		return "", pkgError.WebhookError(fmt.Sprintf("error when create signature %v", err))
	}

	// Every attempt carries the same key so the bridge can drop a delivery it already accepted.
	idempotencyKey := uuid.NewString()
	if postID != "" {
		idempotencyKey = postID + ":" + w.Platform
	}

	attempts := w.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := w.Backoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		msg, retry, err := w.submit(ctx, body, signature, idempotencyKey)
		if err == nil {
			logrus.Infof("[PLATFORM:%s] published %s on attempt %d", w.Platform, payload.FileName, attempt+1)
			return msg, nil
		}
		lastErr = err
		if !retry {
			break
		}
		logrus.Warnf("[PLATFORM:%s] attempt %d failed: %v", w.Platform, attempt+1, err)
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(sleep):
			}
			sleep *= 2
		}
	}
	return "", lastErr
}

// submit performs a single delivery. retry is false for answers that repeating the
// request cannot change (4xx) and for timeouts, where the bridge may already be publishing.
func (w *WebhookPublisher) submit(ctx context.Context, body []byte, signature, idempotencyKey string) (message string, retry bool, err error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if w.Secret != "" {
		req.Header.Set("X-Hub-Signature-256", "sha256="+signature)
	}
	req.SetBody(body)

	deadline := time.Now().Add(w.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := w.Client.DoDeadline(req, resp, deadline); err != nil {
		again := ctx.Err() == nil && !errors.Is(err, fasthttp.ErrTimeout)
		return "", again, pkgError.WebhookError(fmt.Sprintf("%s bridge unreachable: %v", w.Platform, err))
	}

	var decoded webhookResponse
	_ = json.Unmarshal(resp.Body(), &decoded)

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		if decoded.Message == "" {
			decoded.Message = fmt.Sprintf("Published to %s", w.Platform)
		}
		return decoded.Message, false, nil
	}

	reason := decoded.Error
	if reason == "" {
		reason = decoded.Message
	}
	if reason == "" {
		reason = fmt.Sprintf("bridge returned status %d", status)
	}
	return "", status >= 500, pkgError.WebhookError(reason)
}
