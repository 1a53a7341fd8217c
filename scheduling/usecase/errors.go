package usecase

import (
	"errors"

	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/scheduling/domain/common"
)

// translateError maps engine sentinels onto the HTTP-aware error types.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrScheduleNotFound),
		errors.Is(err, common.ErrPostNotFound),
		errors.Is(err, common.ErrCampaignNotFound):
		return pkgError.NotFoundError(err.Error())
	case errors.Is(err, common.ErrInvalidReorder),
		errors.Is(err, common.ErrSlotInPast),
		errors.Is(err, common.ErrUnsupportedMedia):
		return pkgError.ValidationError(err.Error())
	case errors.Is(err, common.ErrTickInProgress):
		return pkgError.ConflictError(err.Error())
	case errors.Is(err, common.ErrSchedulerStopped):
		return pkgError.ServiceUnavailableError(err.Error())
	}
	return err
}
