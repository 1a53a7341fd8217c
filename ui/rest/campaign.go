package rest

import (
	domainCampaign "github.com/AzielCF/az-social/domains/campaign"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Campaign struct {
	Service domainCampaign.ICampaignUsecase
}

func InitRestCampaign(app fiber.Router, service domainCampaign.ICampaignUsecase) Campaign {
	rest := Campaign{Service: service}
	app.Get("/campaigns", rest.List)
	app.Post("/campaigns", rest.Create)
	app.Get("/campaigns/:id", rest.Get)
	app.Delete("/campaigns/:id", rest.Delete)
	app.Post("/campaigns/:id/posts", rest.AddPost)
	app.Put("/campaigns/:id/order", rest.Reorder)
	app.Post("/campaigns/:id/activate", rest.Activate)

	return rest
}

func (handler *Campaign) List(c *fiber.Ctx) error {
	campaigns, err := handler.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return success(c, "Campaigns retrieved", campaigns)
}

func (handler *Campaign) Get(c *fiber.Ctx) error {
	campaign, err := handler.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return success(c, "Campaign retrieved", campaign)
}

func (handler *Campaign) Create(c *fiber.Ctx) error {
	var request domainCampaign.CreateCampaignRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, err)
	}

	campaign, err := handler.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return success(c, "Campaign created", campaign)
}

func (handler *Campaign) Delete(c *fiber.Ctx) error {
	err := handler.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return success(c, "Campaign deleted", nil)
}

func (handler *Campaign) AddPost(c *fiber.Ctx) error {
	var request domainCampaign.CampaignPostRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, err)
	}

	campaign, err := handler.Service.AddPost(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return success(c, "Post added to campaign", campaign)
}

func (handler *Campaign) Reorder(c *fiber.Ctx) error {
	var request domainCampaign.ReorderRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, err)
	}

	campaign, err := handler.Service.Reorder(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return success(c, "Campaign reordered", campaign)
}

func (handler *Campaign) Activate(c *fiber.Ctx) error {
	campaign, err := handler.Service.Activate(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return success(c, "Campaign activated", campaign)
}
