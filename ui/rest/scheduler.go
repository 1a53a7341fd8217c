package rest

import (
	domainScheduler "github.com/AzielCF/az-social/domains/scheduler"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Scheduler struct {
	Service domainScheduler.ISchedulerUsecase
}

func InitRestScheduler(app fiber.Router, service domainScheduler.ISchedulerUsecase) Scheduler {
	rest := Scheduler{Service: service}
	app.Get("/scheduler/status", rest.Status)
	app.Post("/scheduler/start", rest.Start)
	app.Post("/scheduler/stop", rest.Stop)
	app.Post("/scheduler/tick", rest.Tick)

	return rest
}

func (handler *Scheduler) Status(c *fiber.Ctx) error {
	return success(c, "Scheduler status", handler.Service.Status(c.UserContext()))
}

func (handler *Scheduler) Start(c *fiber.Ctx) error {
	status, err := handler.Service.Start(c.UserContext())
	utils.PanicIfNeeded(err)

	return success(c, "Scheduler started", status)
}

func (handler *Scheduler) Stop(c *fiber.Ctx) error {
	return success(c, "Scheduler stopped", handler.Service.Stop(c.UserContext()))
}

func (handler *Scheduler) Tick(c *fiber.Ctx) error {
	status, err := handler.Service.Tick(c.UserContext())
	utils.PanicIfNeeded(err)

	return success(c, "Tick completed", status)
}
