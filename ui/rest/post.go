package rest

import (
	domainPost "github.com/AzielCF/az-social/domains/post"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Post struct {
	Service domainPost.IPostUsecase
}

func InitRestPost(app fiber.Router, service domainPost.IPostUsecase) Post {
	rest := Post{Service: service}
	app.Get("/queue", rest.ListPending)
	app.Post("/queue", rest.AddManual)
	app.Delete("/queue/:id", rest.Remove)
	app.Get("/history", rest.History)
	app.Post("/posts/publish-now", rest.PublishNow)
	app.Get("/jobs/:id", rest.GetJob)

	return rest
}

func (handler *Post) ListPending(c *fiber.Ctx) error {
	posts, err := handler.Service.ListPending(c.UserContext())
	utils.PanicIfNeeded(err)

	return success(c, "Pending posts retrieved", posts)
}

func (handler *Post) AddManual(c *fiber.Ctx) error {
	var request domainPost.ManualPostRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, err)
	}

	post, err := handler.Service.AddManual(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return success(c, "Post queued", post)
}

func (handler *Post) Remove(c *fiber.Ctx) error {
	err := handler.Service.Remove(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return success(c, "Post removed from queue", nil)
}

func (handler *Post) History(c *fiber.Ctx) error {
	posts, err := handler.Service.History(c.UserContext(), c.QueryInt("limit", domainPost.DefaultHistoryLimit))
	utils.PanicIfNeeded(err)

	return success(c, "History retrieved", posts)
}

func (handler *Post) PublishNow(c *fiber.Ctx) error {
	var request domainPost.PublishNowRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, err)
	}

	job, err := handler.Service.PublishNow(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusAccepted).JSON(utils.ResponseData{
		Status:  fiber.StatusAccepted,
		Code:    "SUCCESS",
		Message: "Publish job accepted",
		Results: job,
	})
}

func (handler *Post) GetJob(c *fiber.Ctx) error {
	job, err := handler.Service.GetJob(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return success(c, "Job retrieved", job)
}
