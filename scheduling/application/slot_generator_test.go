package application

import (
	"testing"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRandom struct{ v int }

func (f fixedRandom) IntN(n int) int {
	if f.v >= n {
		return n - 1
	}
	return f.v
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func basicSchedule(days []string, times []string) common.Schedule {
	return common.Schedule{
		ID:           "sched-1",
		Name:         "Weekly",
		Mode:         common.ScheduleModeBasic,
		StartDate:    timeutils.MustDate("2024-12-01"),
		EndDate:      timeutils.MustDate("2025-12-31"),
		PostsPerDay:  2,
		Days:         days,
		PostingTimes: times,
		Platforms:    []string{"instagram"},
		Active:       true,
	}
}

// 2025-01-01 is a Wednesday.
var wednesdayMorning = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

func newTestGenerator(now time.Time, opts ...SlotGeneratorOption) *SlotGenerator {
	base := []SlotGeneratorOption{WithClock(fixedClock(now)), WithLocation(time.UTC), WithRandom(fixedRandom{})}
	return NewSlotGenerator(append(base, opts...)...)
}

func TestGenerate_NotYetActive(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday"}, []string{"09:00"})
	rule.StartDate = timeutils.MustDate("2025-02-01")

	slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 3, 0), 50)
	assert.Empty(t, slots)
}

func TestGenerate_Expired(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday"}, []string{"09:00"})
	rule.StartDate = timeutils.MustDate("2024-11-01")
	rule.EndDate = timeutils.MustDate("2024-12-31")

	assert.Empty(t, g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 7), 50))
}

func TestGenerate_InactiveProducesNothing(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday"}, []string{"09:00"})
	rule.Active = false

	assert.Empty(t, g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 7), 50))
}

func TestGenerate_BasicTwoSlotsPerMatchingWeekday(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday", "Wednesday"}, []string{"15:00", "09:00"})

	windowEnd := time.Date(2025, 1, 14, 23, 59, 0, 0, time.UTC)
	slots := g.Generate(rule, wednesdayMorning, windowEnd, 100)

	perDay := map[string]int{}
	for i, s := range slots {
		assert.True(t, s.After(wednesdayMorning), "slot %s must be in the future", s)
		wd := s.Weekday()
		assert.True(t, wd == time.Monday || wd == time.Wednesday, "unexpected weekday %s", wd)
		if i > 0 {
			assert.True(t, s.After(slots[i-1]), "slots must be chronological")
		}
		perDay[s.Format("2006-01-02")]++
	}

	assert.Equal(t, map[string]int{
		"2025-01-01": 2,
		"2025-01-06": 2,
		"2025-01-08": 2,
		"2025-01-13": 2,
	}, perDay)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), slots[0])
}

func TestGenerate_SkipsPastSlotsOfToday(t *testing.T) {
	noon := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := newTestGenerator(noon)
	rule := basicSchedule([]string{"Wednesday"}, []string{"09:00", "15:00"})

	slots := g.Generate(rule, noon, noon.Add(24*time.Hour), 10)
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC), slots[0])
}

func TestGenerate_RespectsMaxSlots(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday", "Wednesday"}, []string{"09:00", "15:00"})

	slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 14), 3)
	assert.Len(t, slots, 3)
}

func TestGenerate_AdvancedMode(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule(nil, nil)
	rule.Mode = common.ScheduleModeAdvanced
	rule.DaySchedules = map[string]common.DaySchedule{
		"monday":  {Enabled: true, Times: []string{"18:00", "08:00"}},
		"tuesday": {Enabled: false, Times: []string{"10:00"}},
	}

	slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 7), 10)
	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC), slots[0])
	assert.Equal(t, time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC), slots[1])
}

func TestGenerate_MalformedTimeOnlySkipsThatSlot(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday"}, []string{"09:00", "bad", "25:00", "15:00"})

	slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 7), 10)
	require.Len(t, slots, 2)
	assert.Equal(t, 9, slots[0].Hour())
	assert.Equal(t, 15, slots[1].Hour())
}

func TestGenerate_NoParseableTimeFallsBack(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	basic := basicSchedule([]string{"Monday"}, []string{"bad", "25:00"})
	advanced := basicSchedule(nil, nil)
	advanced.Mode = common.ScheduleModeAdvanced
	advanced.DaySchedules = map[string]common.DaySchedule{"monday": {Enabled: true, Times: []string{"9am"}}}

	for name, rule := range map[string]common.Schedule{"basic": basic, "advanced": advanced} {
		assert.True(t, g.IsFallback(rule), name)
		slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 3), 10)
		require.Len(t, slots, 3, name)
		for i, s := range slots {
			assert.Equal(t, time.Date(2025, 1, 1+i, 9, 0, 0, 0, time.UTC), s, name)
		}
	}
	assert.False(t, g.IsFallback(basicSchedule([]string{"Monday"}, []string{"bad", "10:00"})))
}

func TestGenerate_FallbackOnePerDayInBusinessHours(t *testing.T) {
	g := newTestGenerator(wednesdayMorning, WithRandom(fixedRandom{v: 539}))
	rule := basicSchedule(nil, nil)

	slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 3), 10)
	// Jan 1, 2, 3 at 17:59; Jan 4 is past the window end (08:00).
	require.Len(t, slots, 3)
	for i, s := range slots {
		assert.Equal(t, 17, s.Hour())
		assert.Equal(t, 59, s.Minute())
		assert.Equal(t, 1+i, s.Day())
	}
}

func TestGenerate_FallbackRandomStaysInRange(t *testing.T) {
	g := NewSlotGenerator(WithClock(fixedClock(wednesdayMorning)), WithLocation(time.UTC))
	rule := basicSchedule(nil, nil)

	slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.AddDate(0, 0, 30), 30)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.GreaterOrEqual(t, s.Hour(), 9)
		assert.LessOrEqual(t, s.Hour(), 17)
		assert.True(t, s.After(wednesdayMorning))
	}
}

func TestGenerate_SkipWeekendsAndHolidays(t *testing.T) {
	holidays := NewStaticHolidays([]string{"2025-01-02", "not-a-date"})
	g := newTestGenerator(wednesdayMorning, WithHolidays(holidays))
	rule := basicSchedule([]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}, []string{"10:00"})
	rule.Rules.SkipWeekends = true
	rule.Rules.SkipHolidays = true

	slots := g.Generate(rule, wednesdayMorning, time.Date(2025, 1, 6, 23, 0, 0, 0, time.UTC), 10)
	var days []int
	for _, s := range slots {
		days = append(days, s.Day())
	}
	// Jan 2 is a holiday, Jan 4/5 are a weekend.
	assert.Equal(t, []int{1, 3, 6}, days)
}

func TestGenerate_MinimumInterval(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Wednesday"}, []string{"09:00", "09:10", "10:00"})
	rule.Rules.MinimumInterval = 30

	slots := g.Generate(rule, wednesdayMorning, wednesdayMorning.Add(12*time.Hour), 10)
	require.Len(t, slots, 2)
	assert.Equal(t, 9, slots[0].Hour())
	assert.Equal(t, 10, slots[1].Hour())
}

func TestRollingWindow_ClampsToEndDate(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday"}, []string{"09:00"})
	rule.EndDate = timeutils.MustDate("2025-01-03")

	start, end, ok := g.RollingWindow(rule, 7*24*time.Hour)
	require.True(t, ok)
	assert.Equal(t, wednesdayMorning, start)
	assert.Equal(t, 3, end.Day())
	assert.Equal(t, 23, end.Hour())
}

func TestPreview_IgnoresActiveFlag(t *testing.T) {
	g := newTestGenerator(wednesdayMorning)
	rule := basicSchedule([]string{"Monday"}, []string{"09:00"})
	rule.Active = false

	slots := g.Preview(rule, 3)
	require.Len(t, slots, 3)
	assert.Equal(t, time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC), slots[2])
}
