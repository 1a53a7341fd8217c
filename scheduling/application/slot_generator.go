package application

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/sirupsen/logrus"
)

const (
	// Fallback slots land between 09:00 and 17:59 local time.
	fallbackFirstMinute = 9 * 60
	fallbackSpanMinutes = 9 * 60
)

// RandomSource is the subset of math/rand/v2 the generator needs.
type RandomSource interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// HolidayCalendar tells the generator which dates count as holidays.
type HolidayCalendar interface {
	IsHoliday(d timeutils.Date) bool
}

// StaticHolidays is a fixed set of holiday dates.
type StaticHolidays map[timeutils.Date]bool

func (h StaticHolidays) IsHoliday(d timeutils.Date) bool { return h[d] }

// NewStaticHolidays parses "YYYY-MM-DD" entries, dropping the ones that do not parse.
func NewStaticHolidays(dates []string) StaticHolidays {
	h := make(StaticHolidays, len(dates))
	for _, s := range dates {
		d, err := timeutils.ParseDate(s)
		if err != nil {
			logrus.Warnf("[SLOTS] ignoring holiday %q: %v", s, err)
			continue
		}
		h[d] = true
	}
	return h
}

// SlotGenerator turns a Schedule and a time window into candidate publish times.
type SlotGenerator struct {
	now      func() time.Time
	loc      *time.Location
	rng      RandomSource
	holidays HolidayCalendar
}

type SlotGeneratorOption func(*SlotGenerator)

func WithClock(now func() time.Time) SlotGeneratorOption {
	return func(g *SlotGenerator) { g.now = now }
}

func WithLocation(loc *time.Location) SlotGeneratorOption {
	return func(g *SlotGenerator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

func WithRandom(rng RandomSource) SlotGeneratorOption {
	return func(g *SlotGenerator) { g.rng = rng }
}

func WithHolidays(h HolidayCalendar) SlotGeneratorOption {
	return func(g *SlotGenerator) { g.holidays = h }
}

func NewSlotGenerator(opts ...SlotGeneratorOption) *SlotGenerator {
	g := &SlotGenerator{
		now: time.Now,
		loc: time.Local,
		rng: globalRandom{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SlotGenerator) Location() *time.Location { return g.loc }

// RollingWindow returns [now, min(end_date, now+lookahead)] for rule. ok is false when the
// window is empty.
func (g *SlotGenerator) RollingWindow(rule common.Schedule, lookahead time.Duration) (start, end time.Time, ok bool) {
	start = g.now()
	end = start.Add(lookahead)
	if !rule.EndDate.IsZero() {
		if ruleEnd := rule.EndDate.EndOf(g.loc); ruleEnd.Before(end) {
			end = ruleEnd
		}
	}
	return start, end, !end.Before(start)
}

// Generate returns up to maxSlots chronologically ordered timestamps for rule inside
// [windowStart, windowEnd]. Every returned timestamp is strictly after now.
func (g *SlotGenerator) Generate(rule common.Schedule, windowStart, windowEnd time.Time, maxSlots int) []time.Time {
	now := g.now()
	if !rule.Active || maxSlots <= 0 || windowEnd.Before(windowStart) {
		return nil
	}
	if !rule.StartDate.IsZero() && rule.StartDate.StartOf(g.loc).After(now) {
		return nil // not yet active
	}
	if !rule.EndDate.IsZero() && rule.EndDate.EndOf(g.loc).Before(now) {
		return nil // expired
	}

	daily, fallback := g.resolve(rule)

	first := timeutils.DateOf(windowStart, g.loc)
	last := timeutils.DateOf(windowEnd, g.loc)
	if !rule.StartDate.IsZero() && first.Before(rule.StartDate) {
		first = rule.StartDate
	}
	if !rule.EndDate.IsZero() && last.After(rule.EndDate) {
		last = rule.EndDate
	}

	minGap := time.Duration(rule.Rules.MinimumInterval) * time.Minute
	var previous time.Time
	slots := make([]time.Time, 0, maxSlots)

	for day := first; !day.After(last) && len(slots) < maxSlots; day = day.AddDays(1) {
		if rule.Rules.SkipWeekends && timeutils.IsWeekend(day.Weekday()) {
			continue
		}
		if rule.Rules.SkipHolidays && g.holidays != nil && g.holidays.IsHoliday(day) {
			continue
		}

		var clocks []timeutils.Clock
		if fallback {
			clocks = []timeutils.Clock{g.randomClock()}
		} else {
			clocks = daily[day.Weekday()]
		}

		for _, c := range clocks {
			t := day.At(g.loc, c)
			if !t.After(now) || t.Before(windowStart) || t.After(windowEnd) {
				continue
			}
			if minGap > 0 && !previous.IsZero() && t.Sub(previous) < minGap {
				continue
			}
			slots = append(slots, t)
			previous = t
			if len(slots) >= maxSlots {
				break
			}
		}
	}
	return slots
}

// Preview lists the next count slots of rule regardless of the rolling window.
func (g *SlotGenerator) Preview(rule common.Schedule, count int) []time.Time {
	preview := rule
	preview.Active = true
	start := g.now()
	end := start.AddDate(1, 0, 0)
	if !rule.EndDate.IsZero() && rule.EndDate.EndOf(g.loc).Before(end) {
		end = rule.EndDate.EndOf(g.loc)
	}
	return g.Generate(preview, start, end, count)
}

// resolve builds the per-weekday sorted clocks of rule. fallback is true when no day carries
// a parseable time.
func (g *SlotGenerator) resolve(rule common.Schedule) (map[time.Weekday][]timeutils.Clock, bool) {
	daily := make(map[time.Weekday][]timeutils.Clock)

	switch rule.Mode {
	case common.ScheduleModeAdvanced:
		configured := false
		for key, ds := range rule.DaySchedules {
			if !ds.Enabled || len(ds.Times) == 0 {
				continue
			}
			wd, err := timeutils.ParseWeekday(key)
			if err != nil {
				logrus.WithField("schedule_id", rule.ID).Warnf("[SLOTS] skipping unknown day %q", key)
				continue
			}
			clocks := parseClocks(rule.ID, ds.Times)
			if len(clocks) == 0 {
				continue
			}
			configured = true
			daily[wd] = append(daily[wd], clocks...)
		}
		if !configured {
			return nil, true
		}
	default:
		days := rule.WeekdaySet()
		if len(days) == 0 {
			return nil, true
		}
		clocks := parseClocks(rule.ID, rule.PostingTimes)
		if len(clocks) == 0 {
			return nil, true
		}
		for wd := range days {
			daily[wd] = clocks
		}
	}

	for wd, clocks := range daily {
		sorted := append([]timeutils.Clock(nil), clocks...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Minutes() < sorted[j].Minutes() })
		daily[wd] = sorted
	}
	return daily, false
}

// IsFallback reports whether rule resolves to the random daily slot.
func (g *SlotGenerator) IsFallback(rule common.Schedule) bool {
	_, fallback := g.resolve(rule)
	return fallback
}

func (g *SlotGenerator) randomClock() timeutils.Clock {
	m := fallbackFirstMinute + g.rng.IntN(fallbackSpanMinutes)
	return timeutils.Clock{Hour: m / 60, Minute: m % 60}
}

// parseClocks drops malformed entries; each one only costs its own slot.
func parseClocks(scheduleID string, raw []string) []timeutils.Clock {
	clocks := make([]timeutils.Clock, 0, len(raw))
	for _, s := range raw {
		c, err := timeutils.ParseClock(s)
		if err != nil {
			logrus.WithField("schedule_id", scheduleID).WithError(err).Warn("[SLOTS] skipping malformed posting time")
			continue
		}
		clocks = append(clocks, c)
	}
	return clocks
}
