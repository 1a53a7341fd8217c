package validations

import (
	"context"
	"testing"
	"time"

	domainCampaign "github.com/AzielCF/az-social/domains/campaign"
	domainPost "github.com/AzielCF/az-social/domains/post"
	domainSchedule "github.com/AzielCF/az-social/domains/schedule"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/stretchr/testify/assert"
)

func validSchedule() domainSchedule.ScheduleRequest {
	return domainSchedule.ScheduleRequest{
		Name:         "Weekdays",
		Mode:         common.ScheduleModeBasic,
		StartDate:    timeutils.MustDate("2025-01-01"),
		EndDate:      timeutils.MustDate("2025-02-01"),
		PostsPerDay:  2,
		Days:         []string{"monday", "Fri"},
		PostingTimes: []string{"09:00", "18:30"},
		Platforms:    []string{"instagram"},
	}
}

func TestValidateSchedule(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateSchedule(ctx, validSchedule()))

	cases := map[string]func(r *domainSchedule.ScheduleRequest){
		"missing name":      func(r *domainSchedule.ScheduleRequest) { r.Name = "" },
		"unknown mode":      func(r *domainSchedule.ScheduleRequest) { r.Mode = "weekly" },
		"end before start":  func(r *domainSchedule.ScheduleRequest) { r.EndDate = timeutils.MustDate("2024-12-31") },
		"bad posting time":  func(r *domainSchedule.ScheduleRequest) { r.PostingTimes = []string{"25:00"} },
		"bad weekday":       func(r *domainSchedule.ScheduleRequest) { r.Days = []string{"someday"} },
		"no platforms":      func(r *domainSchedule.ScheduleRequest) { r.Platforms = nil },
		"negative interval": func(r *domainSchedule.ScheduleRequest) { r.Rules.MinimumInterval = -5 },
		"bad advanced day": func(r *domainSchedule.ScheduleRequest) {
			r.Mode = common.ScheduleModeAdvanced
			r.DaySchedules = map[string]common.DaySchedule{"monday": {Enabled: true, Times: []string{"9am"}}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validSchedule()
			mutate(&req)
			err := ValidateSchedule(ctx, req)
			assert.Error(t, err)
			assert.IsType(t, pkgError.ValidationError(""), err)
		})
	}
}

func TestValidateSchedule_OpenEndedDatesAreAllowed(t *testing.T) {
	req := validSchedule()
	req.EndDate = timeutils.Date{}
	req.Mode = ""
	assert.NoError(t, ValidateSchedule(context.Background(), req))
}

func TestValidatePosts(t *testing.T) {
	ctx := context.Background()
	manual := domainPost.ManualPostRequest{
		MediaPath:     "/media/a.jpg",
		Platforms:     []string{"instagram"},
		ScheduledTime: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, ValidateManualPost(ctx, manual))

	manual.MediaPath = "/media/a.pdf"
	assert.Error(t, ValidateManualPost(ctx, manual))

	manual.MediaPath = "/media/a.jpg"
	manual.ScheduledTime = time.Time{}
	assert.Error(t, ValidateManualPost(ctx, manual))

	assert.NoError(t, ValidatePublishNow(ctx, domainPost.PublishNowRequest{MediaPath: "x.mp4", Platforms: []string{"tiktok"}}))
	assert.Error(t, ValidatePublishNow(ctx, domainPost.PublishNowRequest{MediaPath: "x.mp4"}))
}

func TestValidateCampaign(t *testing.T) {
	ctx := context.Background()
	req := domainCampaign.CreateCampaignRequest{
		Name:      "Launch",
		Platforms: []string{"instagram"},
		Rule: common.CampaignRule{
			StartDate:    timeutils.MustDate("2025-03-10"),
			PostsPerDay:  2,
			PostingTimes: []string{"09:00", "15:00"},
		},
		Posts: []domainCampaign.CampaignPostRequest{{MediaPath: "a.png"}},
	}
	assert.NoError(t, ValidateCreateCampaign(ctx, req))

	noStart := req
	noStart.Rule.StartDate = timeutils.Date{}
	assert.Error(t, ValidateCreateCampaign(ctx, noStart))

	badPost := req
	badPost.Posts = []domainCampaign.CampaignPostRequest{{MediaPath: "notes.txt"}}
	assert.Error(t, ValidateCreateCampaign(ctx, badPost))

	noTimes := req
	noTimes.Rule.PostingTimes = nil
	assert.Error(t, ValidateCreateCampaign(ctx, noTimes))

	assert.Error(t, ValidateReorder(ctx, domainCampaign.ReorderRequest{}))
	assert.NoError(t, ValidateReorder(ctx, domainCampaign.ReorderRequest{PostIDs: []string{"a"}}))
}
