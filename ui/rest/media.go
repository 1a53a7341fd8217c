package rest

import (
	"errors"

	domainMedia "github.com/AzielCF/az-social/domains/media"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Media struct {
	Service domainMedia.IMediaUsecase
}

func InitRestMedia(app fiber.Router, service domainMedia.IMediaUsecase) Media {
	rest := Media{Service: service}
	app.Get("/media", rest.List)
	app.Post("/media", rest.Upload)
	app.Get("/media/preview", rest.Preview)

	return rest
}

func (handler *Media) List(c *fiber.Ctx) error {
	listing, err := handler.Service.List(c.UserContext(), c.Query("dir"))
	utils.PanicIfNeeded(err)

	return success(c, "Media retrieved", listing)
}

func (handler *Media) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, errors.New("multipart field 'file' is required"))
	}

	stored, err := handler.Service.Upload(c.UserContext(), file)
	utils.PanicIfNeeded(err)

	return success(c, "Media uploaded", stored)
}

// Preview writes the thumbnail bytes directly, not wrapped in ResponseData.
func (handler *Media) Preview(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return badRequest(c, errors.New("query parameter 'name' is required"))
	}

	preview, err := handler.Service.Preview(c.UserContext(), name)
	utils.PanicIfNeeded(err)

	c.Set(fiber.HeaderContentType, preview.ContentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.Send(preview.Data)
}
