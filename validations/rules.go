package validations

import (
	"errors"
	"fmt"

	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	validClock = validation.By(func(value any) error {
		s, _ := value.(string)
		_, err := timeutils.ParseClock(s)
		return err
	})

	validWeekday = validation.By(func(value any) error {
		s, _ := value.(string)
		_, err := timeutils.ParseWeekday(s)
		return err
	})

	supportedMedia = validation.By(func(value any) error {
		s, _ := value.(string)
		if s != "" && !common.IsSupportedMedia(s) {
			return common.ErrUnsupportedMedia
		}
		return nil
	})

	requiredDate = validation.By(func(value any) error {
		if d, _ := value.(timeutils.Date); d.IsZero() {
			return errors.New("cannot be blank")
		}
		return nil
	})
)

// dateNotBefore fails when both dates are set and value is earlier than start.
func dateNotBefore(start timeutils.Date) validation.Rule {
	return validation.By(func(value any) error {
		end, _ := value.(timeutils.Date)
		if start.IsZero() || end.IsZero() {
			return nil
		}
		if end.Before(start) {
			return fmt.Errorf("must not be before start_date %s", start)
		}
		return nil
	})
}
