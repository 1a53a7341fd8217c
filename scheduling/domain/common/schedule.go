package common

import (
	"sort"
	"strings"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
)

type ScheduleMode string

const (
	ScheduleModeBasic    ScheduleMode = "basic"
	ScheduleModeAdvanced ScheduleMode = "advanced"
)

// DaySchedule is the advanced-mode entry for a single weekday.
type DaySchedule struct {
	Enabled bool     `json:"enabled"`
	Times   []string `json:"times"`
}

type ScheduleRules struct {
	SkipWeekends    bool `json:"skip_weekends"`
	SkipHolidays    bool `json:"skip_holidays"`
	MinimumInterval int  `json:"minimum_interval"` // minutes between consecutive slots
}

// Schedule is a recurring posting rule.
type Schedule struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Mode            ScheduleMode           `json:"mode"`
	StartDate       timeutils.Date         `json:"start_date"`
	EndDate         timeutils.Date         `json:"end_date"`
	PostsPerDay     int                    `json:"posts_per_day"`
	Days            []string               `json:"days,omitempty"`
	PostingTimes    []string               `json:"posting_times,omitempty"`
	DaySchedules    map[string]DaySchedule `json:"day_schedules,omitempty"`
	Platforms       []string               `json:"platforms"`
	Active          bool                   `json:"active"`
	Rules           ScheduleRules          `json:"rules"`
	MediaDir        string                 `json:"media_dir,omitempty"`
	CaptionTemplate string                 `json:"caption_template,omitempty"`
	AICaption       bool                   `json:"ai_caption,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// WeekdaySet resolves Days to weekdays, ignoring names that do not parse.
func (s Schedule) WeekdaySet() map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(s.Days))
	for _, name := range s.Days {
		if wd, err := timeutils.ParseWeekday(name); err == nil {
			set[wd] = true
		}
	}
	return set
}

// DayScheduleFor looks up the advanced entry for wd. Keys are matched by weekday name
// regardless of case or abbreviation.
func (s Schedule) DayScheduleFor(wd time.Weekday) (DaySchedule, bool) {
	for key, ds := range s.DaySchedules {
		parsed, err := timeutils.ParseWeekday(key)
		if err == nil && parsed == wd {
			return ds, true
		}
	}
	return DaySchedule{}, false
}

// SortedDays returns the configured weekdays ordered Sunday..Saturday.
func (s Schedule) SortedDays() []time.Weekday {
	set := s.WeekdaySet()
	if s.Mode == ScheduleModeAdvanced {
		set = make(map[time.Weekday]bool)
		for key, ds := range s.DaySchedules {
			if wd, err := timeutils.ParseWeekday(key); err == nil && ds.Enabled {
				set[wd] = true
			}
		}
	}
	days := make([]time.Weekday, 0, len(set))
	for wd := range set {
		days = append(days, wd)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// NextOccurrence reports the earliest configured weekday/time strictly after from, bounded by
// the start and end dates. ok is false for inactive schedules, expired schedules and schedules
// without an explicit day/time rule.
func (s Schedule) NextOccurrence(from time.Time, loc *time.Location) (next time.Time, ok bool) {
	if !s.Active {
		return time.Time{}, false
	}
	if !s.StartDate.IsZero() {
		if start := s.StartDate.StartOf(loc); start.After(from) {
			from = start.Add(-time.Nanosecond)
		}
	}

	for _, wd := range s.SortedDays() {
		times := s.PostingTimes
		if s.Mode == ScheduleModeAdvanced {
			ds, _ := s.DayScheduleFor(wd)
			times = ds.Times
		}
		for _, raw := range times {
			t, err := timeutils.CalculateNextOccurrence([]time.Weekday{wd}, raw, from, loc)
			if err != nil {
				continue
			}
			if !ok || t.Before(next) {
				next, ok = t, true
			}
		}
	}
	if ok && !s.EndDate.IsZero() && next.After(s.EndDate.EndOf(loc)) {
		return time.Time{}, false
	}
	return next, ok
}

// NormalizedPlatforms lowercases, trims and de-duplicates platform identifiers.
func NormalizedPlatforms(platforms []string) []string {
	seen := make(map[string]bool, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
