package timeutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return DateOf(t, time.UTC), nil
}

// MustDate is ParseDate for literals. It panics on malformed input.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// StartOf returns midnight of the date in loc.
func (d Date) StartOf(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// EndOf returns the last representable instant of the date in loc.
func (d Date) EndOf(loc *time.Location) time.Time {
	return d.AddDays(1).StartOf(loc).Add(-time.Nanosecond)
}

// At combines the date with a wall clock time in loc.
func (d Date) At(loc *time.Location, c Clock) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

// AddDays normalises through time.Date so month and year boundaries roll over.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC)
	return DateOf(t, time.UTC)
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) key() int { return d.Year*10000 + int(d.Month)*100 + d.Day }

func (d Date) Before(o Date) bool { return d.key() < o.key() }
func (d Date) After(o Date) bool  { return d.key() > o.key() }
func (d Date) Equal(o Date) bool  { return d.key() == o.key() }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock is a wall clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts English weekday names, full or abbreviated, in any case.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return time.Sunday, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}

// IsWeekend reports Saturday and Sunday.
func IsWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}

// CalculateNextOccurrence returns the first instant strictly after from that falls on one of
// days at the given "HH:MM" wall time in loc.
func CalculateNextOccurrence(days []time.Weekday, originalTime string, from time.Time, loc *time.Location) (time.Time, error) {
	if len(days) == 0 || originalTime == "" {
		return time.Time{}, fmt.Errorf("days and originalTime are required")
	}
	clock, err := ParseClock(originalTime)
	if err != nil {
		return time.Time{}, err
	}

	targetDays := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		targetDays[d] = true
	}

	day := DateOf(from, loc)
	// Guard against infinite loops
	for i := 0; i < 8; i++ {
		candidate := day.At(loc, clock)
		if targetDays[day.Weekday()] && candidate.After(from) {
			return candidate, nil
		}
		day = day.AddDays(1)
	}

	return time.Time{}, fmt.Errorf("could not find next occurrence within a week")
}
