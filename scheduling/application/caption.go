package application

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

// Captioner produces the caption of a generated post.
type Captioner interface {
	Caption(ctx context.Context, media common.Publishable, schedule common.Schedule) (string, error)
}

// TemplateCaptioner renders Schedule.CaptionTemplate. Supported placeholders are
// {filename}, {schedule} and {date}.
type TemplateCaptioner struct {
	Now func() time.Time
}

func (t TemplateCaptioner) Caption(_ context.Context, media common.Publishable, schedule common.Schedule) (string, error) {
	return RenderCaption(schedule.CaptionTemplate, media, schedule, t.now()), nil
}

func (t TemplateCaptioner) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func RenderCaption(template string, media common.Publishable, schedule common.Schedule, at time.Time) string {
	if template == "" {
		return ""
	}
	name := strings.TrimSuffix(filepath.Base(media.Path()), filepath.Ext(media.Path()))
	r := strings.NewReplacer(
		"{filename}", name,
		"{schedule}", schedule.Name,
		"{date}", at.Format("2006-01-02"),
	)
	return r.Replace(template)
}
