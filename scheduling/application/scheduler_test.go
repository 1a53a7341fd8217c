package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/domain/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	schedules []common.Schedule
	pending   []common.ScheduledPost
	history   []common.ScheduledPost
	saveErr   error
}

func (m *memoryStore) LoadSchedules(ctx context.Context) ([]common.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]common.Schedule(nil), m.schedules...), nil
}

func (m *memoryStore) LoadPending(ctx context.Context) ([]common.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]common.ScheduledPost(nil), m.pending...), nil
}

func (m *memoryStore) SavePending(ctx context.Context, posts []common.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.pending = append([]common.ScheduledPost(nil), posts...)
	return nil
}

func (m *memoryStore) RecordOutcome(ctx context.Context, post common.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, post)
	return nil
}

func (m *memoryStore) setSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

type staticMedia []string

func (s staticMedia) ListAvailable(ctx context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

type recordingNotifier struct {
	common.LogNotifier
	mu       sync.Mutex
	warnings []string
	errs     []string
}

func (r *recordingNotifier) Warning(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, title)
}

func (r *recordingNotifier) Error(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, title)
}

func newTestScheduler(t *testing.T, now time.Time, store *memoryStore, media staticMedia, reg *platform.Registry, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	s := buildTestScheduler(now, store, media, reg, opts...)
	runTestScheduler(t, s)
	return s
}

// buildTestScheduler returns a scheduler whose queue owner is not running yet, so hooks and
// collaborators can still be swapped.
func buildTestScheduler(now time.Time, store SchedulerStore, media staticMedia, reg *platform.Registry, opts ...SchedulerOption) *Scheduler {
	if reg == nil {
		reg = platform.NewRegistry()
	}
	base := []SchedulerOption{
		WithSchedulerClock(fixedClock(now)),
		WithSelection(func() SelectionStrategy { return RoundRobinStrategy{} }),
	}
	return NewScheduler(
		SchedulerConfig{DefaultMediaDir: "/media"},
		store,
		newTestGenerator(now),
		NewPublishDispatcher(reg, time.Second),
		func(string) MediaSource { return media },
		append(base, opts...)...,
	)
}

func runTestScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.done
	})
}

func mondayOnlySchedule() common.Schedule {
	return common.Schedule{
		ID:           "weekly",
		Name:         "Weekly",
		Mode:         common.ScheduleModeBasic,
		StartDate:    timeutils.MustDate("2025-01-01"),
		EndDate:      timeutils.MustDate("2025-01-07"),
		PostsPerDay:  1,
		Days:         []string{"Monday"},
		PostingTimes: []string{"09:00"},
		Platforms:    []string{"instagram"},
		Active:       true,
	}
}

func TestScheduler_MaterializesNextMonday(t *testing.T) {
	store := &memoryStore{schedules: []common.Schedule{mondayOnlySchedule()}}
	media := staticMedia{"/media/a.jpg", "/media/b.jpg", "/media/c.mp4"}
	s := newTestScheduler(t, wednesdayMorning, store, media, nil)

	require.NoError(t, s.TickNow(context.Background()))

	pending := s.Pending()
	require.Len(t, pending, 1)
	post := pending[0]
	assert.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), post.ScheduledTime)
	assert.Equal(t, "weekly", post.ScheduleID)
	assert.Equal(t, common.ScheduledPostStatusScheduled, post.Status)
	assert.Contains(t, []string(media), post.MediaPath)
	assert.Equal(t, pending, store.pending, "pending list is persisted")
}

func TestScheduler_MaterializationIsIdempotent(t *testing.T) {
	sc := basicSchedule([]string{"Monday", "Wednesday"}, []string{"09:00", "15:00"})
	store := &memoryStore{schedules: []common.Schedule{sc}}
	media := staticMedia{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg", "7.jpg", "8.jpg"}
	s := newTestScheduler(t, wednesdayMorning, store, media, nil)

	require.NoError(t, s.TickNow(context.Background()))
	first := s.Pending()
	require.NoError(t, s.TickNow(context.Background()))
	second := s.Pending()

	assert.Equal(t, first, second)
	seen := map[string]bool{}
	for _, p := range second {
		key := slotKey(p.ScheduleID, p.ScheduledTime)
		assert.False(t, seen[key], "duplicate slot %s", key)
		seen[key] = true
	}
}

// cyclingRandom returns a different value on every call.
type cyclingRandom struct {
	mu sync.Mutex
	n  int
}

func (c *cyclingRandom) IntN(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return (c.n * 97) % n
}

func TestScheduler_FallbackScheduleFillsEachDateOnce(t *testing.T) {
	rule := basicSchedule(nil, nil)
	rule.PostsPerDay = 1
	media := make(staticMedia, 100)
	for i := range media {
		media[i] = fmt.Sprintf("/media/%03d.jpg", i)
	}
	store := &memoryStore{schedules: []common.Schedule{rule}}
	s := buildTestScheduler(wednesdayMorning, store, media, nil)
	s.generator = newTestGenerator(wednesdayMorning, WithRandom(&cyclingRandom{}))
	runTestScheduler(t, s)

	perDay := func() map[string]int {
		counts := make(map[string]int)
		for _, p := range s.Pending() {
			counts[p.ScheduledTime.Format(time.DateOnly)]++
		}
		return counts
	}

	require.NoError(t, s.TickNow(context.Background()))
	first := s.Pending()
	// Jan 1 to Jan 7; the Jan 8 slot falls after the window closes at 08:00.
	require.Len(t, first, 7)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.TickNow(context.Background()))
	}
	assert.Equal(t, first, s.Pending())
	for day, n := range perDay() {
		assert.Equal(t, 1, n, day)
	}
}

func TestScheduler_SchedulesSharingADirectoryDrawWithoutReplacement(t *testing.T) {
	a := mondayOnlySchedule()
	b := mondayOnlySchedule()
	b.ID, b.Name = "other", "Other"
	store := &memoryStore{schedules: []common.Schedule{a, b}}
	s := newTestScheduler(t, wednesdayMorning, store, staticMedia{"x.jpg", "y.jpg"}, nil)

	require.NoError(t, s.TickNow(context.Background()))

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.NotEqual(t, pending[0].MediaPath, pending[1].MediaPath)
}

func TestScheduler_PoolExhaustionWarns(t *testing.T) {
	sc := basicSchedule([]string{"Monday"}, []string{"09:00", "15:00"})
	store := &memoryStore{schedules: []common.Schedule{sc}}
	notifier := &recordingNotifier{}
	s := newTestScheduler(t, wednesdayMorning, store, staticMedia{"only.jpg"}, nil, WithNotifier(notifier))

	require.NoError(t, s.TickNow(context.Background()))

	assert.Len(t, s.Pending(), 1)
	assert.Contains(t, notifier.warnings, "Media pool exhausted")
}

func TestScheduler_PublishesDuePosts(t *testing.T) {
	reg := platform.NewRegistry()
	reg.Register("a", platform.PublisherFunc(func(ctx context.Context, media common.Publishable, caption string) (string, error) {
		return "ok", nil
	}))
	reg.Register("b", platform.PublisherFunc(func(ctx context.Context, media common.Publishable, caption string) (string, error) {
		return "", errors.New("quota")
	}))

	due := common.ScheduledPost{
		ID: "due-1", ScheduleID: common.ManualQueueID, MediaPath: "/media/a.jpg",
		Platforms: []string{"a", "b"}, Status: common.ScheduledPostStatusScheduled,
		ScheduledTime: wednesdayMorning.Add(-time.Minute),
	}
	later := due
	later.ID = "later-1"
	later.ScheduledTime = wednesdayMorning.Add(time.Hour)
	store := &memoryStore{pending: []common.ScheduledPost{due, later}}

	var hooked []string
	s := newTestScheduler(t, wednesdayMorning, store, nil, reg)
	s.OnOutcome(func(ctx context.Context, post common.ScheduledPost) { hooked = append(hooked, post.ID) })

	require.NoError(t, s.TickNow(context.Background()))

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "later-1", pending[0].ID)

	require.Len(t, store.history, 1)
	done := store.history[0]
	assert.Equal(t, common.ScheduledPostStatusPublished, done.Status)
	assert.True(t, done.Results["a"].OK)
	assert.False(t, done.Results["b"].OK)
	require.NotNil(t, done.PublishedTime)
	assert.Equal(t, []string{"due-1"}, hooked)
}

func TestScheduler_FailedPostsAreNotRetried(t *testing.T) {
	due := common.ScheduledPost{
		ID: "due-1", ScheduleID: common.ManualQueueID, MediaPath: "/media/a.jpg",
		Platforms: []string{"nowhere"}, Status: common.ScheduledPostStatusScheduled,
		ScheduledTime: wednesdayMorning.Add(-time.Minute),
	}
	store := &memoryStore{pending: []common.ScheduledPost{due}}
	s := newTestScheduler(t, wednesdayMorning, store, nil, nil)

	require.NoError(t, s.TickNow(context.Background()))
	require.NoError(t, s.TickNow(context.Background()))

	assert.Empty(t, s.Pending())
	require.Len(t, store.history, 1)
	assert.Equal(t, common.ScheduledPostStatusFailed, store.history[0].Status)
}

func TestScheduler_PersistenceFailureAbortsTickOnly(t *testing.T) {
	store := &memoryStore{schedules: []common.Schedule{mondayOnlySchedule()}}
	notifier := &recordingNotifier{}
	s := newTestScheduler(t, wednesdayMorning, store, staticMedia{"a.jpg"}, nil, WithNotifier(notifier))

	store.setSaveErr(errors.New("disk full"))
	err := s.TickNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, s.Status().LastTickError, "disk full")
	assert.Contains(t, notifier.errs, "Scheduler tick failed")

	store.setSaveErr(nil)
	require.NoError(t, s.TickNow(context.Background()))
	assert.Len(t, store.pending, 1)
	assert.Empty(t, s.Status().LastTickError)
}

func TestScheduler_TickGuard(t *testing.T) {
	s := newTestScheduler(t, wednesdayMorning, &memoryStore{}, nil, nil)

	s.busy.Store(true)
	assert.ErrorIs(t, s.TickNow(context.Background()), common.ErrTickInProgress)
	assert.True(t, s.Status().Ticking)

	s.busy.Store(false)
	assert.NoError(t, s.TickNow(context.Background()))
}

func TestScheduler_QueueCommands(t *testing.T) {
	store := &memoryStore{}
	s := newTestScheduler(t, wednesdayMorning, store, nil, nil)
	ctx := context.Background()

	post, err := s.Enqueue(ctx, common.ScheduledPost{MediaPath: "m.jpg", Platforms: []string{"X"}, ScheduledTime: wednesdayMorning.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, common.ManualQueueID, post.ScheduleID)
	assert.Equal(t, []string{"x"}, post.Platforms)

	early := common.ScheduledPost{ID: "c-1", ScheduleID: "camp", MediaPath: "n.jpg", ScheduledTime: wednesdayMorning.Add(time.Hour), Status: common.ScheduledPostStatusScheduled}
	stale := early
	stale.ID = "c-0"
	require.NoError(t, s.ReplaceSchedule(ctx, "camp", func(context.Context) ([]common.ScheduledPost, error) {
		return []common.ScheduledPost{stale}, nil
	}))
	require.NoError(t, s.ReplaceSchedule(ctx, "camp", func(context.Context) ([]common.ScheduledPost, error) {
		return []common.ScheduledPost{early}, nil
	}))

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "c-1", pending[0].ID, "pending list stays sorted by time")

	failing := errors.New("campaign file unreadable")
	assert.ErrorIs(t, s.ReplaceSchedule(ctx, "camp", func(context.Context) ([]common.ScheduledPost, error) {
		return nil, failing
	}), failing)
	assert.Len(t, s.Pending(), 2)

	require.NoError(t, s.RemoveBySchedule(ctx, "camp"))
	assert.Len(t, s.Pending(), 1)

	assert.ErrorIs(t, s.Remove(ctx, "missing"), common.ErrPostNotFound)
	require.NoError(t, s.Remove(ctx, post.ID))
	assert.Empty(t, store.pending)
}

func TestScheduler_StoppedOwnerRejectsCommands(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, &memoryStore{}, newTestGenerator(wednesdayMorning), NewPublishDispatcher(nil, 0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	cancel()
	<-s.done

	assert.ErrorIs(t, s.TickNow(context.Background()), common.ErrSchedulerStopped)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(t, wednesdayMorning, &memoryStore{}, nil, nil)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.Status().Running)
	assert.Equal(t, "1m0s", s.Status().Interval)

	s.Stop()
	assert.False(t, s.Running())
}
