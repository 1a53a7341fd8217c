package cmd

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreconfig "github.com/AzielCF/az-social/core/config"
	"github.com/AzielCF/az-social/ui/rest"
	"github.com/AzielCF/az-social/ui/rest/middleware"
	"github.com/AzielCF/az-social/ui/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Run the scheduler with the REST API and websocket events",
	Run:   restServer,
}

func init() {
	restCmd.Flags().Bool("no-autostart", false, "keep the scheduler stopped until POST /api/scheduler/start")
	rootCmd.AddCommand(restCmd)
}

func restServer(cmd *cobra.Command, _ []string) {
	initApp()

	autoStart := coreconfig.Global.Scheduler.AutoStart
	if noAuto, _ := cmd.Flags().GetBool("no-autostart"); noAuto {
		autoStart = false
	}

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		BodyLimit:               int(coreconfig.Global.App.MaxUploadSize),
		Network:                 "tcp",
		AppName:                 "Az-Social Scheduler",
		ServerHeader:            "Hidden",
	}

	// Configure proxy settings if trusted proxies are specified
	if len(coreconfig.Global.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = coreconfig.Global.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	app.Use(requestid.New())

	origins := strings.Join(coreconfig.Global.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, coreconfig.Global.App.BaseUrl) {
		origins += ", " + coreconfig.Global.App.BaseUrl
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())

	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; connect-src 'self' ws: wss:;",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if coreconfig.Global.App.Debug {
		app.Use(logger.New())
	}

	app.Static(coreconfig.Global.App.BasePath+"/statics", coreconfig.Global.Paths.Statics)

	apiGroup := app.Group(coreconfig.Global.App.BasePath + "/api")

	if len(coreconfig.Global.App.BasicAuth) > 0 {
		account := make(map[string]string)
		for _, basicAuth := range coreconfig.Global.App.BasicAuth {
			user, secret, ok := strings.Cut(basicAuth, ":")
			if !ok {
				logrus.Fatalln("Basic auth is not valid, please this following format <user>:<secret>")
			}
			account[user] = secret
		}
		apiGroup.Use(basicauth.New(basicauth.Config{
			Users: account,
			Next: func(c *fiber.Ctx) bool {
				// Allow CORS preflight without credentials.
				return c.Method() == fiber.MethodOptions
			},
		}))
	} else {
		logrus.Warn("[REST] APP_BASIC_AUTH is empty, the API is open to anyone who can reach it")
	}

	rest.InitRestApp(apiGroup, publishPool, monitor)
	rest.InitRestSchedule(apiGroup, scheduleUsecase)
	rest.InitRestPost(apiGroup, postUsecase)
	rest.InitRestCampaign(apiGroup, campaignUsecase)
	rest.InitRestScheduler(apiGroup, schedulerUsecase)
	rest.InitRestMedia(apiGroup, mediaUsecase)

	websocket.RegisterRoutes(apiGroup, wsHub, scheduler.Status)
	go wsHub.Run(appCtx)

	apiGroup.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "API Endpoint not found",
			"path":  c.Path(),
		})
	})

	schedulerDone := startScheduler(autoStart)

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + coreconfig.Global.App.Port); err != nil {
		logrus.Errorf("[REST] Failed to start: %v", err)
	}

	StopApp()
	<-schedulerDone
}
