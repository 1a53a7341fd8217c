package validations

import (
	"context"

	domainPost "github.com/AzielCF/az-social/domains/post"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateManualPost(ctx context.Context, request domainPost.ManualPostRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.MediaPath, validation.Required, supportedMedia),
		validation.Field(&request.Platforms, validation.Required, validation.Each(validation.Required)),
		validation.Field(&request.ScheduledTime, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidatePublishNow(ctx context.Context, request domainPost.PublishNowRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.MediaPath, validation.Required, supportedMedia),
		validation.Field(&request.Platforms, validation.Required, validation.Each(validation.Required)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
