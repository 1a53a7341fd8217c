package scheduler

import (
	"context"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

type ISchedulerUsecase interface {
	Status(ctx context.Context) common.SchedulerStatus
	Start(ctx context.Context) (common.SchedulerStatus, error)
	Stop(ctx context.Context) common.SchedulerStatus
	Tick(ctx context.Context) (common.SchedulerStatus, error)
}
