package activity

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

const DefaultBufferSize = 200

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"` // status | info | warning | error | scheduled | published
	Title      string    `json:"title,omitempty"`
	Message    string    `json:"message"`
	PostID     string    `json:"post_id,omitempty"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	Status     string    `json:"status,omitempty"`
}

type Stats struct {
	TotalScheduled int64   `json:"total_scheduled"`
	TotalPublished int64   `json:"total_published"`
	TotalFailed    int64   `json:"total_failed"`
	TotalErrors    int64   `json:"total_errors"`
	RecentEvents   []Event `json:"recent_events"`
}

// Monitor keeps the last N engine events in a ring buffer plus running totals. It
// implements common.Notifier so it can sit next to the websocket hub.
type Monitor struct {
	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int
	ttl      time.Duration
	now      func() time.Time

	totalScheduled int64
	totalPublished int64
	totalFailed    int64
	totalErrors    int64
}

var _ common.Notifier = (*Monitor)(nil)

// New creates a monitor holding size events. Events older than ttl are hidden from
// GetStats; zero keeps them until overwritten.
func New(size int, ttl time.Duration) *Monitor {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Monitor{events: make([]Event, size), ttl: ttl, now: time.Now}
}

func (m *Monitor) Record(e Event) {
	e.Timestamp = m.now().UTC()

	switch e.Kind {
	case "scheduled":
		atomic.AddInt64(&m.totalScheduled, 1)
	case "published":
		if e.Status == string(common.ScheduledPostStatusPublished) {
			atomic.AddInt64(&m.totalPublished, 1)
		} else {
			atomic.AddInt64(&m.totalFailed, 1)
		}
	case "error":
		atomic.AddInt64(&m.totalErrors, 1)
	}

	m.eventsMu.Lock()
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
	m.eventsMu.Unlock()
}

// GetStats returns the totals and the buffered events, oldest first.
func (m *Monitor) GetStats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	res := make([]Event, 0, m.count)
	cutoff := time.Time{}
	if m.ttl > 0 {
		cutoff = m.now().UTC().Add(-m.ttl)
	}
	start := (m.idx - m.count) % len(m.events)
	if start < 0 {
		start += len(m.events)
	}
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if !cutoff.IsZero() && e.Timestamp.Before(cutoff) {
			continue
		}
		res = append(res, e)
	}

	return Stats{
		TotalScheduled: atomic.LoadInt64(&m.totalScheduled),
		TotalPublished: atomic.LoadInt64(&m.totalPublished),
		TotalFailed:    atomic.LoadInt64(&m.totalFailed),
		TotalErrors:    atomic.LoadInt64(&m.totalErrors),
		RecentEvents:   res,
	}
}

func (m *Monitor) StatusUpdate(message string) {
	m.Record(Event{Kind: "status", Message: message})
}

func (m *Monitor) Error(title, message string) {
	m.Record(Event{Kind: "error", Title: title, Message: message})
}

func (m *Monitor) Warning(title, message string) {
	m.Record(Event{Kind: "warning", Title: title, Message: message})
}

func (m *Monitor) Info(title, message string) {
	m.Record(Event{Kind: "info", Title: title, Message: message})
}

// ScheduleUpdated is too chatty for the feed.
func (m *Monitor) ScheduleUpdated() {}

func (m *Monitor) PostScheduled(post common.ScheduledPost) {
	m.Record(Event{
		Kind:       "scheduled",
		Message:    post.MediaPath,
		PostID:     post.ID,
		ScheduleID: post.ScheduleID,
		Status:     string(post.Status),
	})
}

func (m *Monitor) PostPublished(post common.ScheduledPost) {
	m.Record(Event{
		Kind:       "published",
		Message:    post.MediaPath,
		PostID:     post.ID,
		ScheduleID: post.ScheduleID,
		Status:     string(post.Status),
	})
}
