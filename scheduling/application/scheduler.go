package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/domain/platform"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTickInterval = 60 * time.Second
	DefaultLookahead    = 7 * 24 * time.Hour
)

// SchedulerStore is the persistence the scheduler reads and writes on every tick.
type SchedulerStore interface {
	LoadSchedules(ctx context.Context) ([]common.Schedule, error)
	LoadPending(ctx context.Context) ([]common.ScheduledPost, error)
	SavePending(ctx context.Context, posts []common.ScheduledPost) error
	RecordOutcome(ctx context.Context, post common.ScheduledPost) error
}

// MediaSourceFactory returns the media source backing a directory.
type MediaSourceFactory func(dir string) MediaSource

// OutcomeHook is called with every post that reached a terminal state.
type OutcomeHook func(ctx context.Context, post common.ScheduledPost)

type SchedulerConfig struct {
	Interval        time.Duration
	Lookahead       time.Duration
	DefaultMediaDir string
	// ExcludeQueued keeps media already attached to a pending post out of new draws.
	ExcludeQueued bool
}

// Scheduler materializes schedules into pending posts and publishes them when due.
//
// The pending list is owned by the goroutine running Run; every other method talks to it
// through the command channel.
type Scheduler struct {
	cfg        SchedulerConfig
	store      SchedulerStore
	generator  *SlotGenerator
	dispatcher *PublishDispatcher
	media      MediaSourceFactory
	strategy   func() SelectionStrategy
	captioner  Captioner
	notifier   common.Notifier
	hooks      []OutcomeHook
	now        func() time.Time

	cmds    chan command
	done    chan struct{}
	started atomic.Bool

	busy     atomic.Bool
	snapshot atomic.Pointer[[]common.ScheduledPost]
	report   atomic.Pointer[tickReport]

	cronMu sync.Mutex
	cron   *cron.Cron
}

type tickReport struct {
	at  time.Time
	err error
}

type command struct {
	ctx   context.Context
	fn    func(ctx context.Context, st *queueState) error
	reply chan error
}

// queueState is only touched by the Run goroutine.
type queueState struct {
	pending []common.ScheduledPost
	loaded  bool
}

type SchedulerOption func(*Scheduler)

func WithNotifier(n common.Notifier) SchedulerOption {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithCaptioner(c Captioner) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.captioner = c
		}
	}
}

// WithSelection sets the strategy used by the per-pass media pools.
func WithSelection(newStrategy func() SelectionStrategy) SchedulerOption {
	return func(s *Scheduler) { s.strategy = newStrategy }
}

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(cfg SchedulerConfig, store SchedulerStore, generator *SlotGenerator, dispatcher *PublishDispatcher, media MediaSourceFactory, opts ...SchedulerOption) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultLookahead
	}
	s := &Scheduler{
		cfg:        cfg,
		store:      store,
		generator:  generator,
		dispatcher: dispatcher,
		media:      media,
		strategy:   func() SelectionStrategy { return NewRandomStrategy(nil) },
		captioner:  TemplateCaptioner{},
		notifier:   common.LogNotifier{},
		now:        time.Now,
		cmds:       make(chan command),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnOutcome registers a hook. Hooks run on the queue owner, must be added before Run and
// must not call back into the scheduler's queue methods.
func (s *Scheduler) OnOutcome(hook OutcomeHook) {
	s.hooks = append(s.hooks, hook)
}

// Run owns the pending list until ctx is cancelled. It must be called once.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	defer close(s.done)
	defer s.Stop()

	st := &queueState{}
	if err := st.reload(ctx, s.store); err != nil {
		logrus.WithError(err).Error("[SCHEDULER] initial load of pending posts failed")
	}
	s.publishSnapshot(st)
	logrus.Infof("[SCHEDULER] queue owner started with %d pending posts", len(st.pending))

	for {
		select {
		case <-ctx.Done():
			logrus.Info("[SCHEDULER] queue owner stopped")
			return ctx.Err()
		case cmd := <-s.cmds:
			cmd.reply <- s.exec(cmd, st)
		}
	}
}

func (s *Scheduler) exec(cmd command, st *queueState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[SCHEDULER] recovered from panic: %v", r)
			err = fmt.Errorf("scheduler command panicked: %v", r)
			st.loaded = false
		}
		s.publishSnapshot(st)
	}()
	return cmd.fn(cmd.ctx, st)
}

func (s *Scheduler) send(ctx context.Context, fn func(ctx context.Context, st *queueState) error) error {
	cmd := command{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return common.ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		return common.ErrSchedulerStopped
	}
}

// Start arms the tick timer. Calling it on a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logrus.StandardLogger()))))
	spec := "@every " + s.cfg.Interval.String()
	if _, err := c.AddFunc(spec, s.timerTick); err != nil {
		return fmt.Errorf("schedule tick %q: %w", spec, err)
	}
	c.Start()
	s.cron = c

	logrus.Infof("[SCHEDULER] started, ticking every %s", s.cfg.Interval)
	s.notifier.StatusUpdate("Scheduler started")
	return nil
}

// Stop disarms the tick timer. A publish already in flight runs to completion.
func (s *Scheduler) Stop() {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil

	logrus.Info("[SCHEDULER] stopped")
	s.notifier.StatusUpdate("Scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	return s.cron != nil
}

func (s *Scheduler) timerTick() {
	err := s.TickNow(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, common.ErrTickInProgress):
		logrus.Debug("[SCHEDULER] previous tick still running, skipping")
	case errors.Is(err, common.ErrSchedulerStopped):
		logrus.Warn("[SCHEDULER] tick fired without a queue owner")
	default:
		logrus.WithError(err).Error("[SCHEDULER] tick failed")
	}
}

// TickNow runs one tick synchronously. It returns ErrTickInProgress while another tick
// is running.
func (s *Scheduler) TickNow(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return common.ErrTickInProgress
	}
	defer s.busy.Store(false)

	err := s.send(ctx, s.tick)
	if !errors.Is(err, common.ErrSchedulerStopped) {
		s.report.Store(&tickReport{at: s.now(), err: err})
	}
	return err
}

func (s *Scheduler) Status() common.SchedulerStatus {
	status := common.SchedulerStatus{
		Running:      s.Running(),
		Ticking:      s.busy.Load(),
		Interval:     s.cfg.Interval.String(),
		PendingCount: len(s.Pending()),
	}
	if r := s.report.Load(); r != nil {
		status.LastTickAt = r.at.Format(time.RFC3339)
		if r.err != nil {
			status.LastTickError = r.err.Error()
		}
	}
	return status
}

// Pending returns a copy of the pending list as of the last completed command.
func (s *Scheduler) Pending() []common.ScheduledPost {
	p := s.snapshot.Load()
	if p == nil {
		return nil
	}
	return append([]common.ScheduledPost(nil), (*p)...)
}

// Enqueue adds a post to the pending list. Missing ids, status and creation time are filled in.
func (s *Scheduler) Enqueue(ctx context.Context, post common.ScheduledPost) (common.ScheduledPost, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.ScheduleID == "" {
		post.ScheduleID = common.ManualQueueID
	}
	if post.CreatedTime.IsZero() {
		post.CreatedTime = s.now()
	}
	post.Status = common.ScheduledPostStatusScheduled
	post.Platforms = common.NormalizedPlatforms(post.Platforms)

	err := s.send(ctx, func(ctx context.Context, st *queueState) error {
		if err := st.ensureLoaded(ctx, s.store); err != nil {
			return err
		}
		st.pending = append(st.pending, post)
		if err := s.persist(ctx, st); err != nil {
			return err
		}
		s.notifier.PostScheduled(post)
		return nil
	})
	return post, err
}

// Remove drops a pending post by id.
func (s *Scheduler) Remove(ctx context.Context, id string) error {
	return s.send(ctx, func(ctx context.Context, st *queueState) error {
		if err := st.ensureLoaded(ctx, s.store); err != nil {
			return err
		}
		kept := st.pending[:0]
		found := false
		for _, p := range st.pending {
			if p.ID == id {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		if !found {
			return common.ErrPostNotFound
		}
		st.pending = kept
		if err := s.persist(ctx, st); err != nil {
			return err
		}
		s.notifier.ScheduleUpdated()
		return nil
	})
}

// ReplaceSchedule swaps every pending post of scheduleID for the posts build returns. build
// runs on the queue owner, never during a tick, and must not call back into the queue.
func (s *Scheduler) ReplaceSchedule(ctx context.Context, scheduleID string, build func(ctx context.Context) ([]common.ScheduledPost, error)) error {
	return s.send(ctx, func(ctx context.Context, st *queueState) error {
		if err := st.ensureLoaded(ctx, s.store); err != nil {
			return err
		}
		posts, err := build(ctx)
		if err != nil {
			return err
		}
		kept := make([]common.ScheduledPost, 0, len(st.pending)+len(posts))
		for _, p := range st.pending {
			if p.ScheduleID != scheduleID {
				kept = append(kept, p)
			}
		}
		st.pending = append(kept, posts...)
		if err := s.persist(ctx, st); err != nil {
			return err
		}
		s.notifier.ScheduleUpdated()
		return nil
	})
}

// RemoveBySchedule drops every pending post owned by scheduleID.
func (s *Scheduler) RemoveBySchedule(ctx context.Context, scheduleID string) error {
	return s.send(ctx, func(ctx context.Context, st *queueState) error {
		if err := st.ensureLoaded(ctx, s.store); err != nil {
			return err
		}
		kept := st.pending[:0]
		for _, p := range st.pending {
			if p.ScheduleID != scheduleID {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(st.pending) {
			return nil
		}
		st.pending = kept
		return s.persist(ctx, st)
	})
}

// Reload discards the in-memory list and reads it back from the store.
func (s *Scheduler) Reload(ctx context.Context) error {
	return s.send(ctx, func(ctx context.Context, st *queueState) error {
		return st.reload(ctx, s.store)
	})
}

func (s *Scheduler) tick(ctx context.Context, st *queueState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
			st.loaded = false
		}
		if err != nil {
			logrus.WithError(err).Error("[SCHEDULER] tick aborted")
			s.notifier.Error("Scheduler tick failed", err.Error())
		}
	}()

	schedules, err := s.store.LoadSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}
	if err := st.reload(ctx, s.store); err != nil {
		return err
	}

	if err := s.publishDue(ctx, st); err != nil {
		return err
	}
	return s.materialize(ctx, st, schedules)
}

func (s *Scheduler) publishDue(ctx context.Context, st *queueState) error {
	now := s.now()
	var due []common.ScheduledPost
	for _, p := range st.pending {
		if p.IsDue(now) {
			due = append(due, p)
		}
	}
	if len(due) == 0 {
		return nil
	}
	logrus.Infof("[SCHEDULER] %d post(s) due", len(due))

	// Publishing outlives cancellation of the caller.
	publishCtx := context.WithoutCancel(ctx)

	for _, post := range due {
		post = s.publish(publishCtx, post)

		st.remove(post.ID)
		if err := s.persist(ctx, st); err != nil {
			return err
		}
		if err := s.store.RecordOutcome(ctx, post); err != nil {
			logrus.WithError(err).WithField("post_id", post.ID).Error("[SCHEDULER] failed to record post history")
		}

		s.notifier.PostPublished(post)
		if post.Status == common.ScheduledPostStatusFailed {
			s.notifier.Error("Publish failed", fmt.Sprintf("%s could not be published to any platform", post.MediaPath))
		}
		for _, hook := range s.hooks {
			hook(publishCtx, post)
		}
	}
	s.notifier.ScheduleUpdated()
	return nil
}

func (s *Scheduler) publish(ctx context.Context, post common.ScheduledPost) common.ScheduledPost {
	finished := func(status common.ScheduledPostStatus, results map[string]common.PlatformResult) common.ScheduledPost {
		at := s.now()
		post.Status = status
		post.Results = results
		post.PublishedTime = &at
		return post
	}

	media, err := common.NewPayload(post.MediaPath)
	if err != nil {
		results := make(map[string]common.PlatformResult, len(post.Platforms))
		for _, p := range common.NormalizedPlatforms(post.Platforms) {
			results[p] = common.PlatformResult{OK: false, Message: err.Error()}
		}
		return finished(common.ScheduledPostStatusFailed, results)
	}

	outcome := s.dispatcher.Dispatch(platform.WithPostID(ctx, post.ID), post.Platforms, media, post.Caption)
	status := common.ScheduledPostStatusFailed
	if outcome.Success {
		status = common.ScheduledPostStatusPublished
	}
	logrus.WithFields(logrus.Fields{
		"post_id":   post.ID,
		"schedule":  post.ScheduleName,
		"succeeded": outcome.SuccessCount(),
		"attempted": len(outcome.Results),
	}).Infof("[SCHEDULER] post %s", status)
	return finished(status, outcome.Results)
}

// materialize fills the rolling window of every active schedule. A slot already held by
// a pending post of the same schedule is never generated twice. Fallback schedules draw a
// new random time on every pass, so for them a date counts as filled once any pending post
// of the schedule falls on it.
func (s *Scheduler) materialize(ctx context.Context, st *queueState, schedules []common.Schedule) error {
	loc := s.generator.Location()
	existing := make(map[string]bool, len(st.pending))
	filledDays := make(map[string]bool, len(st.pending))
	claimed := make(map[string]bool, len(st.pending))
	for _, p := range st.pending {
		existing[slotKey(p.ScheduleID, p.ScheduledTime)] = true
		filledDays[dayKey(p.ScheduleID, timeutils.DateOf(p.ScheduledTime, loc))] = true
		claimed[p.MediaPath] = true
	}

	pools := make(map[string]*Pool)
	created := 0
	for _, sc := range schedules {
		if !sc.Active {
			continue
		}
		start, end, ok := s.generator.RollingWindow(sc, s.cfg.Lookahead)
		if !ok {
			continue
		}
		slots := s.generator.Generate(sc, start, end, sc.PostsPerDay*7)
		fallback := s.generator.IsFallback(sc)

		var fresh []time.Time
		for _, slot := range slots {
			if existing[slotKey(sc.ID, slot)] {
				continue
			}
			if fallback && filledDays[dayKey(sc.ID, timeutils.DateOf(slot, loc))] {
				continue
			}
			fresh = append(fresh, slot)
		}
		if len(fresh) == 0 {
			continue
		}

		pool, err := s.poolFor(ctx, sc, pools, claimed)
		if err != nil {
			logrus.WithError(err).WithField("schedule_id", sc.ID).Warn("[SCHEDULER] media listing failed")
			s.notifier.Warning("Media unavailable", fmt.Sprintf("%s: %v", sc.Name, err))
			continue
		}

		added := 0
		for _, slot := range fresh {
			media, ok := pool.Draw()
			if !ok {
				logrus.WithField("schedule_id", sc.ID).Warnf("[SCHEDULER] %v after %d of %d slots", common.ErrPoolExhausted, added, len(fresh))
				s.notifier.Warning("Media pool exhausted", fmt.Sprintf("%s: scheduled %d of %d slots", sc.Name, added, len(fresh)))
				break
			}
			post := common.ScheduledPost{
				ID:            uuid.NewString(),
				ScheduleID:    sc.ID,
				ScheduleName:  sc.Name,
				MediaPath:     media.Path(),
				Caption:       s.caption(ctx, media, sc),
				Platforms:     common.NormalizedPlatforms(sc.Platforms),
				ScheduledTime: slot,
				CreatedTime:   s.now(),
				Status:        common.ScheduledPostStatusScheduled,
			}
			st.pending = append(st.pending, post)
			existing[slotKey(sc.ID, slot)] = true
			filledDays[dayKey(sc.ID, timeutils.DateOf(slot, loc))] = true
			added++
			s.notifier.PostScheduled(post)
		}
		if added == 0 {
			continue
		}
		if err := s.persist(ctx, st); err != nil {
			return err
		}
		created += added
		logrus.WithField("schedule_id", sc.ID).Infof("[SCHEDULER] materialized %d post(s) for %s", added, sc.Name)
	}

	if created > 0 {
		s.notifier.ScheduleUpdated()
	}
	return nil
}

// poolFor lists each media directory once per pass, so schedules sharing a directory
// draw from the same working copy.
func (s *Scheduler) poolFor(ctx context.Context, sc common.Schedule, pools map[string]*Pool, claimed map[string]bool) (*Pool, error) {
	dir := sc.MediaDir
	if dir == "" {
		dir = s.cfg.DefaultMediaDir
	}
	if pool, ok := pools[dir]; ok {
		return pool, nil
	}
	if s.media == nil {
		return nil, errors.New("no media source configured")
	}
	items, err := s.media(dir).ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	pool := NewPool(items, s.strategy())
	if s.cfg.ExcludeQueued {
		pool.Exclude(claimed)
	}
	pools[dir] = pool
	return pool, nil
}

func (s *Scheduler) caption(ctx context.Context, media common.Publishable, sc common.Schedule) string {
	text, err := s.captioner.Caption(ctx, media, sc)
	if err != nil {
		logrus.WithError(err).WithField("media", media.Path()).Warn("[SCHEDULER] caption generation failed, using template")
		return RenderCaption(sc.CaptionTemplate, media, sc, s.now())
	}
	return text
}

func (s *Scheduler) persist(ctx context.Context, st *queueState) error {
	common.SortByScheduledTime(st.pending)
	if err := s.store.SavePending(ctx, st.pending); err != nil {
		st.loaded = false
		return fmt.Errorf("save pending posts: %w", err)
	}
	return nil
}

func (s *Scheduler) publishSnapshot(st *queueState) {
	snap := append([]common.ScheduledPost(nil), st.pending...)
	s.snapshot.Store(&snap)
}

func (st *queueState) reload(ctx context.Context, store SchedulerStore) error {
	pending, err := store.LoadPending(ctx)
	if err != nil {
		st.loaded = false
		return fmt.Errorf("load pending posts: %w", err)
	}
	st.pending = pending
	st.loaded = true
	return nil
}

func (st *queueState) ensureLoaded(ctx context.Context, store SchedulerStore) error {
	if st.loaded {
		return nil
	}
	return st.reload(ctx, store)
}

func (st *queueState) remove(id string) {
	for i, p := range st.pending {
		if p.ID == id {
			st.pending = append(st.pending[:i], st.pending[i+1:]...)
			return
		}
	}
}

func slotKey(scheduleID string, t time.Time) string {
	return scheduleID + "@" + strconv.FormatInt(t.Unix(), 10)
}

func dayKey(scheduleID string, d timeutils.Date) string {
	return scheduleID + "#" + d.String()
}
