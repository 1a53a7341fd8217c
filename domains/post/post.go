package post

import (
	"context"
	"time"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

const DefaultHistoryLimit = 50

// ManualPostRequest queues a single post outside any schedule.
type ManualPostRequest struct {
	MediaPath     string    `json:"media_path"`
	Caption       string    `json:"caption"`
	Platforms     []string  `json:"platforms"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

// PublishNowRequest publishes immediately through the worker pool.
type PublishNowRequest struct {
	MediaPath string   `json:"media_path"`
	Caption   string   `json:"caption"`
	Platforms []string `json:"platforms"`
}

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusPublished JobStatus = "published"
	JobStatusFailed    JobStatus = "failed"
)

// PublishJob tracks one publish-now request. Jobs expire from the store after the
// configured TTL.
type PublishJob struct {
	ID         string                           `json:"id"`
	MediaPath  string                           `json:"media_path"`
	Caption    string                           `json:"caption"`
	Platforms  []string                         `json:"platforms"`
	Status     JobStatus                        `json:"status"`
	Results    map[string]common.PlatformResult `json:"results,omitempty"`
	Error      string                           `json:"error,omitempty"`
	CreatedAt  time.Time                        `json:"created_at"`
	FinishedAt *time.Time                       `json:"finished_at,omitempty"`
}

type IPostUsecase interface {
	ListPending(ctx context.Context) ([]common.ScheduledPost, error)
	AddManual(ctx context.Context, request ManualPostRequest) (common.ScheduledPost, error)
	Remove(ctx context.Context, id string) error
	History(ctx context.Context, limit int) ([]common.ScheduledPost, error)
	PublishNow(ctx context.Context, request PublishNowRequest) (PublishJob, error)
	GetJob(ctx context.Context, id string) (PublishJob, error)
}
