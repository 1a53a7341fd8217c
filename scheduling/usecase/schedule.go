package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainSchedule "github.com/AzielCF/az-social/domains/schedule"
	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ScheduleRepository is the part of the store schedule editing needs.
type ScheduleRepository interface {
	LoadSchedules(ctx context.Context) ([]common.Schedule, error)
	SaveSchedules(ctx context.Context, schedules []common.Schedule) error
}

// ScheduleQueue drops materialized posts whose rule changed.
type ScheduleQueue interface {
	RemoveBySchedule(ctx context.Context, scheduleID string) error
}

type scheduleService struct {
	mu        sync.Mutex
	repo      ScheduleRepository
	queue     ScheduleQueue
	generator *application.SlotGenerator
	notifier  common.Notifier
	now       func() time.Time
}

func NewScheduleService(repo ScheduleRepository, queue ScheduleQueue, generator *application.SlotGenerator, notifier common.Notifier) domainSchedule.IScheduleUsecase {
	if notifier == nil {
		notifier = common.LogNotifier{}
	}
	return &scheduleService{repo: repo, queue: queue, generator: generator, notifier: notifier, now: time.Now}
}

func (s *scheduleService) List(ctx context.Context) ([]domainSchedule.ScheduleItem, error) {
	schedules, err := s.repo.LoadSchedules(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]domainSchedule.ScheduleItem, len(schedules))
	for i, sc := range schedules {
		items[i].Schedule = sc
		if next, ok := sc.NextOccurrence(now, s.generator.Location()); ok {
			items[i].NextOccurrence = &next
		}
	}
	return items, nil
}

func (s *scheduleService) Get(ctx context.Context, id string) (common.Schedule, error) {
	schedules, err := s.repo.LoadSchedules(ctx)
	if err != nil {
		return common.Schedule{}, err
	}
	if idx := indexOfSchedule(schedules, id); idx >= 0 {
		return schedules[idx], nil
	}
	return common.Schedule{}, translateError(common.ErrScheduleNotFound)
}

func (s *scheduleService) Create(ctx context.Context, request domainSchedule.ScheduleRequest) (common.Schedule, error) {
	if err := validations.ValidateSchedule(ctx, request); err != nil {
		return common.Schedule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.repo.LoadSchedules(ctx)
	if err != nil {
		return common.Schedule{}, err
	}
	now := s.now().UTC()
	sc := common.Schedule{ID: uuid.NewString(), Active: true, CreatedAt: now}
	applyRequest(&sc, request)
	sc.UpdatedAt = now

	schedules = append(schedules, sc)
	if err := s.repo.SaveSchedules(ctx, schedules); err != nil {
		return common.Schedule{}, fmt.Errorf("failed to save schedule: %w", err)
	}

	logrus.WithField("schedule_id", sc.ID).Infof("[SCHEDULE] created %q", sc.Name)
	s.notifier.ScheduleUpdated()
	return sc, nil
}

// Update replaces the editable fields. Posts already materialized for the schedule are
// dropped so the next tick regenerates them under the new rule.
func (s *scheduleService) Update(ctx context.Context, id string, request domainSchedule.ScheduleRequest) (common.Schedule, error) {
	if err := validations.ValidateSchedule(ctx, request); err != nil {
		return common.Schedule{}, err
	}
	return s.mutate(ctx, id, func(sc *common.Schedule) {
		applyRequest(sc, request)
	})
}

func (s *scheduleService) Toggle(ctx context.Context, id string) (common.Schedule, error) {
	return s.mutate(ctx, id, func(sc *common.Schedule) {
		sc.Active = !sc.Active
	})
}

func (s *scheduleService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.repo.LoadSchedules(ctx)
	if err != nil {
		return err
	}
	idx := indexOfSchedule(schedules, id)
	if idx < 0 {
		return translateError(common.ErrScheduleNotFound)
	}
	schedules = append(schedules[:idx], schedules[idx+1:]...)
	if err := s.repo.SaveSchedules(ctx, schedules); err != nil {
		return fmt.Errorf("failed to save schedules: %w", err)
	}
	if err := s.dropQueued(ctx, id); err != nil {
		return err
	}

	logrus.WithField("schedule_id", id).Info("[SCHEDULE] deleted")
	s.notifier.ScheduleUpdated()
	return nil
}

func (s *scheduleService) Preview(ctx context.Context, id string, count int) (domainSchedule.PreviewResponse, error) {
	sc, err := s.Get(ctx, id)
	if err != nil {
		return domainSchedule.PreviewResponse{}, err
	}
	switch {
	case count <= 0:
		count = domainSchedule.DefaultPreviewCount
	case count > domainSchedule.MaxPreviewCount:
		count = domainSchedule.MaxPreviewCount
	}
	slots := s.generator.Preview(sc, count)
	if slots == nil {
		slots = []time.Time{}
	}
	return domainSchedule.PreviewResponse{
		ScheduleID: sc.ID,
		Timezone:   s.generator.Location().String(),
		Slots:      slots,
	}, nil
}

func (s *scheduleService) mutate(ctx context.Context, id string, fn func(sc *common.Schedule)) (common.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules, err := s.repo.LoadSchedules(ctx)
	if err != nil {
		return common.Schedule{}, err
	}
	idx := indexOfSchedule(schedules, id)
	if idx < 0 {
		return common.Schedule{}, translateError(common.ErrScheduleNotFound)
	}
	sc := schedules[idx]
	fn(&sc)
	sc.UpdatedAt = s.now().UTC()
	schedules[idx] = sc

	if err := s.repo.SaveSchedules(ctx, schedules); err != nil {
		return common.Schedule{}, fmt.Errorf("failed to save schedule: %w", err)
	}
	if err := s.dropQueued(ctx, id); err != nil {
		return sc, err
	}

	logrus.WithFields(logrus.Fields{"schedule_id": sc.ID, "active": sc.Active}).Info("[SCHEDULE] updated")
	s.notifier.ScheduleUpdated()
	return sc, nil
}

func (s *scheduleService) dropQueued(ctx context.Context, id string) error {
	if s.queue == nil {
		return nil
	}
	if err := s.queue.RemoveBySchedule(ctx, id); err != nil {
		return translateError(fmt.Errorf("failed to drop queued posts: %w", err))
	}
	return nil
}

func applyRequest(sc *common.Schedule, r domainSchedule.ScheduleRequest) {
	sc.Name = r.Name
	sc.Mode = r.Mode
	if sc.Mode == "" {
		sc.Mode = common.ScheduleModeBasic
	}
	sc.StartDate = r.StartDate
	sc.EndDate = r.EndDate
	sc.PostsPerDay = r.PostsPerDay
	sc.Days = append([]string(nil), r.Days...)
	sc.PostingTimes = append([]string(nil), r.PostingTimes...)
	sc.DaySchedules = r.DaySchedules
	sc.Platforms = common.NormalizedPlatforms(r.Platforms)
	if r.Active != nil {
		sc.Active = *r.Active
	}
	sc.Rules = r.Rules
	sc.MediaDir = r.MediaDir
	sc.CaptionTemplate = r.CaptionTemplate
	sc.AICaption = r.AICaption
}

func indexOfSchedule(schedules []common.Schedule, id string) int {
	for i, sc := range schedules {
		if sc.ID == id {
			return i
		}
	}
	return -1
}
