package repository

import (
	"context"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

// DefaultHistoryLimit caps the number of terminal posts kept in history.
const DefaultHistoryLimit = 500

type IScheduleStore interface {
	Init(ctx context.Context) error

	// Schedules
	LoadSchedules(ctx context.Context) ([]common.Schedule, error)
	SaveSchedules(ctx context.Context, schedules []common.Schedule) error

	// Pending posts, always persisted sorted by scheduled_time
	LoadPending(ctx context.Context) ([]common.ScheduledPost, error)
	SavePending(ctx context.Context, posts []common.ScheduledPost) error

	// History of published and failed posts, newest first
	RecordOutcome(ctx context.Context, post common.ScheduledPost) error
	ListHistory(ctx context.Context, limit int) ([]common.ScheduledPost, error)

	// Campaigns
	LoadCampaigns(ctx context.Context) ([]common.Campaign, error)
	SaveCampaigns(ctx context.Context, campaigns []common.Campaign) error
}

func sortedCopy(posts []common.ScheduledPost) []common.ScheduledPost {
	out := append([]common.ScheduledPost(nil), posts...)
	common.SortByScheduledTime(out)
	return out
}
