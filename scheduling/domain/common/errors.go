package common

import "errors"

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrPostNotFound     = errors.New("scheduled post not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrInvalidReorder   = errors.New("reorder must list every campaign post exactly once")
	ErrSlotInPast       = errors.New("campaign post would be scheduled in the past")
	ErrTickInProgress   = errors.New("a scheduler tick is already running")
	ErrSchedulerStopped = errors.New("scheduler is not running")
	ErrPoolExhausted    = errors.New("media pool exhausted")
	ErrUnsupportedMedia = errors.New("unsupported media type")
)
