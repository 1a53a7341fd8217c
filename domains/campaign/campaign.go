package campaign

import (
	"context"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

type CampaignPostRequest struct {
	MediaPath string `json:"media_path"`
	Caption   string `json:"caption"`
}

type CreateCampaignRequest struct {
	Name      string                `json:"name"`
	Rule      common.CampaignRule   `json:"rule"`
	Platforms []string              `json:"platforms"`
	Posts     []CampaignPostRequest `json:"posts"`
}

// ReorderRequest lists every post id of the campaign in the new order.
type ReorderRequest struct {
	PostIDs []string `json:"post_ids"`
}

type ICampaignUsecase interface {
	List(ctx context.Context) ([]common.Campaign, error)
	Get(ctx context.Context, id string) (common.Campaign, error)
	Create(ctx context.Context, request CreateCampaignRequest) (common.Campaign, error)
	Delete(ctx context.Context, id string) error
	AddPost(ctx context.Context, id string, request CampaignPostRequest) (common.Campaign, error)
	Reorder(ctx context.Context, id string, request ReorderRequest) (common.Campaign, error)
	Activate(ctx context.Context, id string) (common.Campaign, error)
}
