package validations

import (
	"context"
	"fmt"

	domainSchedule "github.com/AzielCF/az-social/domains/schedule"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateSchedule(ctx context.Context, request domainSchedule.ScheduleRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&request.Mode, validation.In(common.ScheduleModeBasic, common.ScheduleModeAdvanced)),
		validation.Field(&request.EndDate, dateNotBefore(request.StartDate)),
		validation.Field(&request.PostsPerDay, validation.Min(0), validation.Max(48)),
		validation.Field(&request.Days, validation.Each(validWeekday)),
		validation.Field(&request.PostingTimes, validation.Each(validClock)),
		validation.Field(&request.DaySchedules, validation.By(validDaySchedules)),
		validation.Field(&request.Platforms, validation.Required, validation.Each(validation.Required)),
	)
	if err == nil {
		err = validation.ValidateStructWithContext(ctx, &request.Rules,
			validation.Field(&request.Rules.MinimumInterval, validation.Min(0)),
		)
	}

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func validDaySchedules(value any) error {
	days, _ := value.(map[string]common.DaySchedule)
	for name, ds := range days {
		if _, err := timeutils.ParseWeekday(name); err != nil {
			return err
		}
		for _, t := range ds.Times {
			if _, err := timeutils.ParseClock(t); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}
