package rest

import (
	"runtime"

	coreconfig "github.com/AzielCF/az-social/core/config"
	"github.com/AzielCF/az-social/pkg/activity"
	"github.com/AzielCF/az-social/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
)

type App struct {
	Pool    *msgworker.PublishWorkerPool
	Monitor *activity.Monitor
}

// InitRestApp registers process-level endpoints: version, settings, publish pool stats
// and the recent activity feed.
func InitRestApp(app fiber.Router, pool *msgworker.PublishWorkerPool, monitor *activity.Monitor) App {
	rest := App{Pool: pool, Monitor: monitor}
	app.Get("/app/version", rest.GetVersion)
	app.Get("/app/settings", rest.GetSettings)
	app.Get("/app/publish-pool/stats", rest.GetPublishPoolStats)
	app.Get("/app/activity", rest.GetActivity)

	return rest
}

func (handler *App) GetVersion(c *fiber.Ctx) error {
	version := ""
	if coreconfig.Global != nil {
		version = coreconfig.Global.App.Version
	}
	return c.JSON(fiber.Map{
		"version": version,
		"os":      runtime.GOOS,
	})
}

func (handler *App) GetSettings(c *fiber.Ctx) error {
	return success(c, "Settings retrieved", coreconfig.GetAllSettings())
}

// GetPublishPoolStats returns real-time publish worker pool statistics
func (handler *App) GetPublishPoolStats(c *fiber.Ctx) error {
	if handler.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Publish worker pool not initialized",
		})
	}
	return c.JSON(handler.Pool.GetStats())
}

func (handler *App) GetActivity(c *fiber.Ctx) error {
	if handler.Monitor == nil {
		return success(c, "Activity retrieved", activity.Stats{RecentEvents: []activity.Event{}})
	}
	return success(c, "Activity retrieved", handler.Monitor.GetStats())
}
