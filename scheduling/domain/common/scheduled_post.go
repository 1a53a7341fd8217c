package common

import (
	"sort"
	"time"
)

type ScheduledPostStatus string

const (
	ScheduledPostStatusScheduled ScheduledPostStatus = "scheduled"
	ScheduledPostStatusPublished ScheduledPostStatus = "published"
	ScheduledPostStatusFailed    ScheduledPostStatus = "failed"
)

// ManualQueueID marks posts queued by hand rather than materialized from a schedule.
const ManualQueueID = "manual_queue"

// PublishNowID marks history entries published immediately, bypassing the queue.
const PublishNowID = "publish_now"

type ScheduledPost struct {
	ID               string                    `json:"id"`
	ScheduleID       string                    `json:"schedule_id"`
	ScheduleName     string                    `json:"schedule_name"`
	MediaPath        string                    `json:"media_path"`
	Caption          string                    `json:"caption"`
	Platforms        []string                  `json:"platforms"`
	ScheduledTime    time.Time                 `json:"scheduled_time"`
	CreatedTime      time.Time                 `json:"created_time"`
	Status           ScheduledPostStatus       `json:"status"`
	CampaignPosition *int                      `json:"campaign_position,omitempty"`
	PublishedTime    *time.Time                `json:"published_time,omitempty"`
	Results          map[string]PlatformResult `json:"results,omitempty"`
}

func (p ScheduledPost) IsTerminal() bool {
	return p.Status == ScheduledPostStatusPublished || p.Status == ScheduledPostStatusFailed
}

// IsDue reports whether the post should be published at now.
func (p ScheduledPost) IsDue(now time.Time) bool {
	return p.Status == ScheduledPostStatusScheduled && !p.ScheduledTime.After(now)
}

// SortByScheduledTime orders posts ascending by time, keeping insertion order for ties.
func SortByScheduledTime(posts []ScheduledPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].ScheduledTime.Before(posts[j].ScheduledTime)
	})
}
