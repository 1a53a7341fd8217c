package usecase

import (
	"context"

	domainCampaign "github.com/AzielCF/az-social/domains/campaign"
	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/validations"
)

type campaignService struct {
	service  *application.CampaignService
	mediaDir string
}

func NewCampaignService(service *application.CampaignService, mediaDir string) domainCampaign.ICampaignUsecase {
	return &campaignService{service: service, mediaDir: mediaDir}
}

func (s *campaignService) List(ctx context.Context) ([]common.Campaign, error) {
	campaigns, err := s.service.List(ctx)
	if campaigns == nil && err == nil {
		campaigns = []common.Campaign{}
	}
	return campaigns, err
}

func (s *campaignService) Get(ctx context.Context, id string) (common.Campaign, error) {
	c, err := s.service.Get(ctx, id)
	return c, translateError(err)
}

func (s *campaignService) Create(ctx context.Context, request domainCampaign.CreateCampaignRequest) (common.Campaign, error) {
	if err := validations.ValidateCreateCampaign(ctx, request); err != nil {
		return common.Campaign{}, err
	}
	c := common.Campaign{
		Name:      request.Name,
		Rule:      request.Rule,
		Platforms: request.Platforms,
	}
	for _, p := range request.Posts {
		path, err := s.resolve(p.MediaPath)
		if err != nil {
			return common.Campaign{}, err
		}
		c.Posts = append(c.Posts, common.CampaignPost{MediaPath: path, Caption: p.Caption})
	}
	created, err := s.service.Create(ctx, c)
	return created, translateError(err)
}

func (s *campaignService) Delete(ctx context.Context, id string) error {
	return translateError(s.service.Delete(ctx, id))
}

func (s *campaignService) AddPost(ctx context.Context, id string, request domainCampaign.CampaignPostRequest) (common.Campaign, error) {
	if err := validations.ValidateCampaignPost(ctx, request); err != nil {
		return common.Campaign{}, err
	}
	path, err := s.resolve(request.MediaPath)
	if err != nil {
		return common.Campaign{}, err
	}
	c, err := s.service.AddPost(ctx, id, common.CampaignPost{MediaPath: path, Caption: request.Caption})
	return c, translateError(err)
}

func (s *campaignService) Reorder(ctx context.Context, id string, request domainCampaign.ReorderRequest) (common.Campaign, error) {
	if err := validations.ValidateReorder(ctx, request); err != nil {
		return common.Campaign{}, err
	}
	c, err := s.service.Reorder(ctx, id, request.PostIDs)
	return c, translateError(err)
}

func (s *campaignService) Activate(ctx context.Context, id string) (common.Campaign, error) {
	c, err := s.service.Activate(ctx, id)
	return c, translateError(err)
}

func (s *campaignService) resolve(name string) (string, error) {
	return resolveMediaPath(s.mediaDir, name)
}
