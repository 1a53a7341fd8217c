package schedule

import (
	"context"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
)

const (
	DefaultPreviewCount = 10
	MaxPreviewCount     = 100
)

// ScheduleRequest is the editable part of a schedule, used for create and update.
type ScheduleRequest struct {
	Name            string                        `json:"name"`
	Mode            common.ScheduleMode           `json:"mode"`
	StartDate       timeutils.Date                `json:"start_date"`
	EndDate         timeutils.Date                `json:"end_date"`
	PostsPerDay     int                           `json:"posts_per_day"`
	Days            []string                      `json:"days"`
	PostingTimes    []string                      `json:"posting_times"`
	DaySchedules    map[string]common.DaySchedule `json:"day_schedules"`
	Platforms       []string                      `json:"platforms"`
	Active          *bool                         `json:"active,omitempty"`
	Rules           common.ScheduleRules          `json:"rules"`
	MediaDir        string                        `json:"media_dir"`
	CaptionTemplate string                        `json:"caption_template"`
	AICaption       bool                          `json:"ai_caption"`
}

// ScheduleItem is a schedule as listed, with its next configured slot.
type ScheduleItem struct {
	common.Schedule
	NextOccurrence *time.Time `json:"next_occurrence,omitempty"`
}

type PreviewResponse struct {
	ScheduleID string      `json:"schedule_id"`
	Timezone   string      `json:"timezone"`
	Slots      []time.Time `json:"slots"`
}

type IScheduleUsecase interface {
	List(ctx context.Context) ([]ScheduleItem, error)
	Get(ctx context.Context, id string) (common.Schedule, error)
	Create(ctx context.Context, request ScheduleRequest) (common.Schedule, error)
	Update(ctx context.Context, id string, request ScheduleRequest) (common.Schedule, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (common.Schedule, error)
	Preview(ctx context.Context, id string, count int) (PreviewResponse, error)
}
