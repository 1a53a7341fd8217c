package usecase

import (
	"context"

	domainScheduler "github.com/AzielCF/az-social/domains/scheduler"
	"github.com/AzielCF/az-social/scheduling/domain/common"
)

// SchedulerControl is the daemon surface exposed over the API.
type SchedulerControl interface {
	Start() error
	Stop()
	TickNow(ctx context.Context) error
	Status() common.SchedulerStatus
}

type schedulerService struct {
	scheduler SchedulerControl
}

func NewSchedulerService(scheduler SchedulerControl) domainScheduler.ISchedulerUsecase {
	return &schedulerService{scheduler: scheduler}
}

func (s *schedulerService) Status(_ context.Context) common.SchedulerStatus {
	return s.scheduler.Status()
}

func (s *schedulerService) Start(_ context.Context) (common.SchedulerStatus, error) {
	if err := s.scheduler.Start(); err != nil {
		return common.SchedulerStatus{}, err
	}
	return s.scheduler.Status(), nil
}

func (s *schedulerService) Stop(_ context.Context) common.SchedulerStatus {
	s.scheduler.Stop()
	return s.scheduler.Status()
}

// Tick runs a tick now, on the caller's goroutine.
func (s *schedulerService) Tick(ctx context.Context) (common.SchedulerStatus, error) {
	if err := s.scheduler.TickNow(ctx); err != nil {
		return s.scheduler.Status(), translateError(err)
	}
	return s.scheduler.Status(), nil
}
