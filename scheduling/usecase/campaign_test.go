package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	domainCampaign "github.com/AzielCF/az-social/domains/campaign"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/pkg/timeutils"
	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignUsecase(t *testing.T) (*campaignService, string) {
	t.Helper()
	store := repository.NewJSONStore(t.TempDir(), 10)
	require.NoError(t, store.Init(context.Background()))
	mediaDir := t.TempDir()
	app := application.NewCampaignService(store, nil, nil, time.UTC)
	return NewCampaignService(app, mediaDir).(*campaignService), mediaDir
}

func launchRequest() domainCampaign.CreateCampaignRequest {
	return domainCampaign.CreateCampaignRequest{
		Name:      "Launch",
		Platforms: []string{"instagram"},
		Rule: common.CampaignRule{
			StartDate:    timeutils.MustDate("2030-03-10"),
			PostsPerDay:  2,
			PostingTimes: []string{"09:00", "15:00"},
		},
		Posts: []domainCampaign.CampaignPostRequest{
			{MediaPath: "teaser.jpg", Caption: "Soon"},
			{MediaPath: "/abs/reveal.mp4"},
		},
	}
}

func TestCampaignUsecase_CreateAndReorder(t *testing.T) {
	svc, mediaDir := newCampaignUsecase(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, launchRequest())
	require.NoError(t, err)
	require.Len(t, c.Posts, 2)
	assert.Equal(t, filepath.Join(mediaDir, "teaser.jpg"), c.Posts[0].MediaPath)
	assert.Equal(t, "/abs/reveal.mp4", c.Posts[1].MediaPath)
	assert.Equal(t, time.Date(2030, 3, 10, 9, 0, 0, 0, time.UTC), c.Posts[0].ScheduledTime)

	c, err = svc.AddPost(ctx, c.ID, domainCampaign.CampaignPostRequest{MediaPath: "finale.png"})
	require.NoError(t, err)
	require.Len(t, c.Posts, 3)

	order := []string{c.Posts[2].ID, c.Posts[0].ID, c.Posts[1].ID}
	c, err = svc.Reorder(ctx, c.ID, domainCampaign.ReorderRequest{PostIDs: order})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mediaDir, "finale.png"), c.Posts[0].MediaPath)
	assert.Equal(t, time.Date(2030, 3, 10, 9, 0, 0, 0, time.UTC), c.Posts[0].ScheduledTime)

	_, err = svc.Reorder(ctx, c.ID, domainCampaign.ReorderRequest{PostIDs: order[:1]})
	assert.IsType(t, pkgError.ValidationError(""), err)
}

func TestCampaignUsecase_NotFound(t *testing.T) {
	svc, _ := newCampaignUsecase(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.IsType(t, pkgError.NotFoundError(""), err)
	_, err = svc.Activate(ctx, "missing")
	assert.IsType(t, pkgError.NotFoundError(""), err)
	assert.IsType(t, pkgError.NotFoundError(""), svc.Delete(ctx, "missing"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
}

func TestCampaignUsecase_ActivateInThePastIsRejected(t *testing.T) {
	svc, _ := newCampaignUsecase(t)
	ctx := context.Background()

	req := launchRequest()
	req.Rule.StartDate = timeutils.MustDate("2020-01-06")
	c, err := svc.Create(ctx, req)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, c.ID)
	assert.IsType(t, pkgError.ValidationError(""), err)
}
