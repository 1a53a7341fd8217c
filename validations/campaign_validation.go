package validations

import (
	"context"

	domainCampaign "github.com/AzielCF/az-social/domains/campaign"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateCreateCampaign(ctx context.Context, request domainCampaign.CreateCampaignRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&request.Platforms, validation.Required, validation.Each(validation.Required)),
	)
	if err == nil {
		err = validation.ValidateStructWithContext(ctx, &request.Rule,
			validation.Field(&request.Rule.StartDate, requiredDate),
			validation.Field(&request.Rule.PostsPerDay, validation.Required, validation.Min(1), validation.Max(48)),
			validation.Field(&request.Rule.PostingTimes, validation.Required, validation.Each(validClock)),
		)
	}
	for i := 0; err == nil && i < len(request.Posts); i++ {
		err = ValidateCampaignPost(ctx, request.Posts[i])
	}

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateCampaignPost(ctx context.Context, request domainCampaign.CampaignPostRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.MediaPath, validation.Required, supportedMedia),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateReorder(ctx context.Context, request domainCampaign.ReorderRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.PostIDs, validation.Required, validation.Each(validation.Required)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
