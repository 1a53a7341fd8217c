package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const (
	DefaultModel         = "gemini-2.5-flash"
	DefaultMaxImageBytes = 4 * 1024 * 1024
	defaultTimeout       = 30 * time.Second
	maxCaptionRunes      = 2200
)

const defaultPrompt = `You write captions for social media posts.
Write one engaging caption in the language suggested by the context. Keep it under 300 characters
and propose up to 5 relevant hashtags without the leading '#'.`

// generateFunc is the single model call the captioner needs.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)

type Config struct {
	APIKey        string
	Model         string
	Prompt        string
	MaxImageBytes int64
	Timeout       time.Duration
}

// Captioner asks Gemini for captions on schedules that opt in and uses Fallback for
// everything else, including every failed request.
type Captioner struct {
	cfg      Config
	fallback application.Captioner
	generate generateFunc

	clientOnce sync.Once
	client     *genai.Client
	clientErr  error
}

type captionResponse struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

func NewCaptioner(cfg Config, fallback application.Captioner) *Captioner {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if fallback == nil {
		fallback = application.TemplateCaptioner{}
	}
	c := &Captioner{cfg: cfg, fallback: fallback}
	c.generate = c.callModel
	return c
}

func (c *Captioner) Enabled() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *Captioner) Caption(ctx context.Context, media common.Publishable, schedule common.Schedule) (string, error) {
	if !schedule.AICaption || !c.Enabled() {
		return c.fallback.Caption(ctx, media, schedule)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := c.generate(ctx, c.cfg.Model, c.contents(media, schedule), c.generateConfig())
	if err != nil {
		logrus.WithError(err).WithField("media", media.Path()).Warn("[GEMINI] caption request failed, using template")
		return c.fallback.Caption(ctx, media, schedule)
	}

	caption := parseCaption(text)
	if caption == "" {
		logrus.WithField("media", media.Path()).Warn("[GEMINI] empty caption, using template")
		return c.fallback.Caption(ctx, media, schedule)
	}
	logrus.WithFields(logrus.Fields{
		"media":       filepath.Base(media.Path()),
		"schedule":    schedule.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("[GEMINI] caption generated")
	return caption, nil
}

func (c *Captioner) contents(media common.Publishable, schedule common.Schedule) []*genai.Content {
	var b strings.Builder
	fmt.Fprintf(&b, "Post for the %q posting schedule.\n", schedule.Name)
	fmt.Fprintf(&b, "File name: %s (%s).\n", filepath.Base(media.Path()), media.Kind())
	if len(schedule.Platforms) > 0 {
		fmt.Fprintf(&b, "Platforms: %s.\n", strings.Join(schedule.Platforms, ", "))
	}
	if tpl := strings.TrimSpace(schedule.CaptionTemplate); tpl != "" {
		fmt.Fprintf(&b, "Follow the spirit of this caption template: %s\n", tpl)
	}

	parts := []*genai.Part{{Text: b.String()}}
	if blob := c.inlineImage(media); blob != nil {
		parts = append(parts, &genai.Part{InlineData: blob})
	}
	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
}

// inlineImage returns the image bytes when they fit under the size cap. Videos are
// described by name only.
func (c *Captioner) inlineImage(media common.Publishable) *genai.Blob {
	if media.IsVideo() || c.cfg.MaxImageBytes < 0 {
		return nil
	}
	info, err := os.Stat(media.Path())
	if err != nil || info.Size() == 0 || info.Size() > c.cfg.MaxImageBytes {
		return nil
	}
	data, err := os.ReadFile(media.Path())
	if err != nil {
		return nil
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(media.Path())))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return &genai.Blob{MIMEType: mimeType, Data: data}
}

func (c *Captioner) generateConfig() *genai.GenerateContentConfig {
	prompt := strings.TrimSpace(c.cfg.Prompt)
	if prompt == "" {
		prompt = defaultPrompt
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseJsonSchema: &genai.Schema{
			Type: "object",
			Properties: map[string]*genai.Schema{
				"caption": {
					Type:        "string",
					Description: "The caption text without hashtags",
				},
				"hashtags": {
					Type:        "array",
					Items:       &genai.Schema{Type: "string"},
					Description: "Relevant hashtags without the leading '#'",
				},
			},
			Required:         []string{"caption"},
			PropertyOrdering: []string{"caption", "hashtags"},
		},
	}
}

func (c *Captioner) callModel(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	c.clientOnce.Do(func() {
		c.client, c.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	if c.clientErr != nil {
		return "", c.clientErr
	}
	result, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return result.Text(), nil
}

// parseCaption accepts the structured answer and falls back to the raw text.
func parseCaption(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var resp captionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		logrus.WithError(err).Debug("[GEMINI] unstructured caption response, using raw text")
		return truncate(raw)
	}

	caption := strings.TrimSpace(resp.Caption)
	var tags []string
	for _, tag := range resp.Hashtags {
		tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
		if tag != "" && !strings.ContainsAny(tag, " \t\n") {
			tags = append(tags, "#"+tag)
		}
	}
	if caption == "" {
		return ""
	}
	if len(tags) > 0 {
		caption += "\n\n" + strings.Join(tags, " ")
	}
	return truncate(caption)
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCaptionRunes {
		return s
	}
	return string(runes[:maxCaptionRunes])
}
