package common

import (
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
)

type CampaignPostStatus string

const (
	CampaignPostStatusDraft     CampaignPostStatus = "draft"
	CampaignPostStatusScheduled CampaignPostStatus = "scheduled"
	CampaignPostStatusPublished CampaignPostStatus = "published"
	CampaignPostStatusFailed    CampaignPostStatus = "failed"
)

// CampaignRule is the simple timing rule shared by all posts of a campaign.
type CampaignRule struct {
	StartDate    timeutils.Date `json:"start_date"`
	PostsPerDay  int            `json:"posts_per_day"`
	PostingTimes []string       `json:"posting_times"`
}

type CampaignPost struct {
	ID               string             `json:"id"`
	MediaPath        string             `json:"media_path"`
	Caption          string             `json:"caption"`
	Status           CampaignPostStatus `json:"status"`
	CampaignPosition int                `json:"campaign_position"`
	ScheduledTime    time.Time          `json:"scheduled_time"`
}

// Mutable reports whether reordering may still move the post.
func (p CampaignPost) Mutable() bool {
	return p.Status == CampaignPostStatusDraft || p.Status == CampaignPostStatusScheduled
}

type Campaign struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Rule      CampaignRule   `json:"rule"`
	Platforms []string       `json:"platforms"`
	Active    bool           `json:"active"`
	Posts     []CampaignPost `json:"posts"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ToScheduledPost converts a campaign entry into a queue entry owned by the campaign.
func (c Campaign) ToScheduledPost(p CampaignPost, now time.Time) ScheduledPost {
	pos := p.CampaignPosition
	return ScheduledPost{
		ID:               p.ID,
		ScheduleID:       c.ID,
		ScheduleName:     c.Name,
		MediaPath:        p.MediaPath,
		Caption:          p.Caption,
		Platforms:        append([]string(nil), c.Platforms...),
		ScheduledTime:    p.ScheduledTime,
		CreatedTime:      now,
		Status:           ScheduledPostStatusScheduled,
		CampaignPosition: &pos,
	}
}
