package rest

import (
	domainSchedule "github.com/AzielCF/az-social/domains/schedule"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Schedule struct {
	Service domainSchedule.IScheduleUsecase
}

func InitRestSchedule(app fiber.Router, service domainSchedule.IScheduleUsecase) Schedule {
	rest := Schedule{Service: service}
	app.Get("/schedules", rest.List)
	app.Post("/schedules", rest.Create)
	app.Get("/schedules/:id", rest.Get)
	app.Put("/schedules/:id", rest.Update)
	app.Delete("/schedules/:id", rest.Delete)
	app.Post("/schedules/:id/toggle", rest.Toggle)
	app.Get("/schedules/:id/preview", rest.Preview)

	return rest
}

func (handler *Schedule) List(c *fiber.Ctx) error {
	schedules, err := handler.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return success(c, "Schedules retrieved", schedules)
}

func (handler *Schedule) Get(c *fiber.Ctx) error {
	schedule, err := handler.Service.Get(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return success(c, "Schedule retrieved", schedule)
}

func (handler *Schedule) Create(c *fiber.Ctx) error {
	var request domainSchedule.ScheduleRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, err)
	}

	schedule, err := handler.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return success(c, "Schedule created", schedule)
}

func (handler *Schedule) Update(c *fiber.Ctx) error {
	var request domainSchedule.ScheduleRequest
	if err := c.BodyParser(&request); err != nil {
		return badRequest(c, err)
	}

	schedule, err := handler.Service.Update(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return success(c, "Schedule updated", schedule)
}

func (handler *Schedule) Delete(c *fiber.Ctx) error {
	err := handler.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return success(c, "Schedule deleted", nil)
}

func (handler *Schedule) Toggle(c *fiber.Ctx) error {
	schedule, err := handler.Service.Toggle(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	message := "Schedule paused"
	if schedule.Active {
		message = "Schedule activated"
	}
	return success(c, message, schedule)
}

func (handler *Schedule) Preview(c *fiber.Ctx) error {
	count := c.QueryInt("count", domainSchedule.DefaultPreviewCount)
	preview, err := handler.Service.Preview(c.UserContext(), c.Params("id"), count)
	utils.PanicIfNeeded(err)

	return success(c, "Upcoming slots computed", preview)
}
