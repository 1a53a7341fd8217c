package usecase

import (
	"context"
	"testing"
	"time"

	domainSchedule "github.com/AzielCF/az-social/domains/schedule"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2025-01-06 08:00 UTC.
var scheduleNow = time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)

func newScheduleService(t *testing.T) (*scheduleService, *fakeQueue, *recordingNotifier) {
	t.Helper()
	store := repository.NewJSONStore(t.TempDir(), 10)
	require.NoError(t, store.Init(context.Background()))
	queue := &fakeQueue{}
	notifier := &recordingNotifier{}
	gen := application.NewSlotGenerator(application.WithClock(fixedClock(scheduleNow)), application.WithLocation(time.UTC))
	svc := NewScheduleService(store, queue, gen, notifier).(*scheduleService)
	svc.now = fixedClock(scheduleNow)
	return svc, queue, notifier
}

func weekdayRequest() domainSchedule.ScheduleRequest {
	return domainSchedule.ScheduleRequest{
		Name:         "Mon/Wed mornings",
		StartDate:    timeutils.MustDate("2025-01-01"),
		PostsPerDay:  1,
		Days:         []string{"monday", "wednesday"},
		PostingTimes: []string{"09:00"},
		Platforms:    []string{" Instagram ", "instagram", "TikTok"},
	}
}

func TestScheduleService_CreateAppliesDefaults(t *testing.T) {
	svc, _, notifier := newScheduleService(t)
	ctx := context.Background()

	sc, err := svc.Create(ctx, weekdayRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, common.ScheduleModeBasic, sc.Mode)
	assert.True(t, sc.Active)
	assert.Equal(t, []string{"instagram", "tiktok"}, sc.Platforms)
	assert.Equal(t, scheduleNow, sc.CreatedAt)
	assert.Equal(t, 1, notifier.updates)

	stored, err := svc.Get(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.Name, stored.Name)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].NextOccurrence)
	assert.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), *list[0].NextOccurrence)
}

func TestScheduleService_ListReportsNextOccurrence(t *testing.T) {
	svc, _, _ := newScheduleService(t)
	ctx := context.Background()

	advanced := weekdayRequest()
	advanced.Name = "Advanced"
	advanced.Mode = common.ScheduleModeAdvanced
	advanced.DaySchedules = map[string]common.DaySchedule{
		"Tuesday": {Enabled: true, Times: []string{"18:30", "07:15"}},
		"monday":  {Enabled: false, Times: []string{"08:30"}},
	}
	_, err := svc.Create(ctx, advanced)
	require.NoError(t, err)

	later := weekdayRequest()
	later.Name = "Starts in February"
	later.StartDate = timeutils.MustDate("2025-02-01")
	_, err = svc.Create(ctx, later)
	require.NoError(t, err)

	fallback := weekdayRequest()
	fallback.Name = "No rule"
	fallback.Days = nil
	_, err = svc.Create(ctx, fallback)
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)

	next := make(map[string]*time.Time, len(list))
	for _, item := range list {
		next[item.Name] = item.NextOccurrence
	}
	require.NotNil(t, next["Advanced"])
	assert.Equal(t, time.Date(2025, 1, 7, 7, 15, 0, 0, time.UTC), *next["Advanced"])
	require.NotNil(t, next["Starts in February"])
	// 2025-02-01 is a Saturday; first Monday is the 3rd.
	assert.Equal(t, time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC), *next["Starts in February"])
	assert.Nil(t, next["No rule"])
}

func TestScheduleService_CreateRejectsInvalidRequest(t *testing.T) {
	svc, _, _ := newScheduleService(t)
	req := weekdayRequest()
	req.EndDate = timeutils.MustDate("2024-12-01")

	_, err := svc.Create(context.Background(), req)
	assert.IsType(t, pkgError.ValidationError(""), err)
}

func TestScheduleService_UpdateAndToggleDropQueuedPosts(t *testing.T) {
	svc, queue, _ := newScheduleService(t)
	ctx := context.Background()
	sc, err := svc.Create(ctx, weekdayRequest())
	require.NoError(t, err)

	req := weekdayRequest()
	req.Name = "Renamed"
	req.PostingTimes = []string{"10:30"}
	updated, err := svc.Update(ctx, sc.ID, req)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, updated.ID)
	assert.Equal(t, sc.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.Active, "an update without active keeps the current state")

	toggled, err := svc.Toggle(ctx, sc.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	assert.Equal(t, []string{sc.ID, sc.ID}, queue.droppedIDs())
}

func TestScheduleService_Delete(t *testing.T) {
	svc, queue, _ := newScheduleService(t)
	ctx := context.Background()
	sc, err := svc.Create(ctx, weekdayRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, sc.ID))
	assert.Equal(t, []string{sc.ID}, queue.droppedIDs())

	err = svc.Delete(ctx, sc.ID)
	assert.IsType(t, pkgError.NotFoundError(""), err)
	_, err = svc.Get(ctx, sc.ID)
	assert.IsType(t, pkgError.NotFoundError(""), err)
}

func TestScheduleService_Preview(t *testing.T) {
	svc, _, _ := newScheduleService(t)
	ctx := context.Background()
	sc, err := svc.Create(ctx, weekdayRequest())
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, sc.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "UTC", preview.Timezone)
	assert.Equal(t, []time.Time{
		time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC),
	}, preview.Slots)

	preview, err = svc.Preview(ctx, sc.ID, 0)
	require.NoError(t, err)
	assert.Len(t, preview.Slots, domainSchedule.DefaultPreviewCount)
}
