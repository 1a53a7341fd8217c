package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	coreconfig "github.com/AzielCF/az-social/core/config"
	coreDB "github.com/AzielCF/az-social/core/database"
	domainCampaign "github.com/AzielCF/az-social/domains/campaign"
	domainMedia "github.com/AzielCF/az-social/domains/media"
	domainPost "github.com/AzielCF/az-social/domains/post"
	domainSchedule "github.com/AzielCF/az-social/domains/schedule"
	domainScheduler "github.com/AzielCF/az-social/domains/scheduler"
	"github.com/AzielCF/az-social/infrastructure/mediadir"
	"github.com/AzielCF/az-social/infrastructure/platforms"
	"github.com/AzielCF/az-social/infrastructure/valkey"
	"github.com/AzielCF/az-social/integrations/gemini"
	"github.com/AzielCF/az-social/pkg/activity"
	"github.com/AzielCF/az-social/pkg/kvstore"
	"github.com/AzielCF/az-social/pkg/msgworker"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/repository"
	"github.com/AzielCF/az-social/scheduling/usecase"
	"github.com/AzielCF/az-social/ui/websocket"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	appCtx    context.Context
	appCancel context.CancelFunc

	// Infrastructure
	store       repository.IScheduleStore
	kvStore     kvstore.Store
	memoryKV    *kvstore.MemoryStore
	vkClient    *valkey.Client
	publishPool *msgworker.PublishWorkerPool
	wsHub       *websocket.Hub
	monitor     *activity.Monitor
	serverID    string

	// Engine
	scheduler *application.Scheduler

	// Usecase
	scheduleUsecase  domainSchedule.IScheduleUsecase
	postUsecase      domainPost.IPostUsecase
	campaignUsecase  domainCampaign.ICampaignUsecase
	schedulerUsecase domainScheduler.ISchedulerUsecase
	mediaUsecase     domainMedia.IMediaUsecase
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-social",
	Short: "Schedule and publish media to social platforms",
	Long: `Az-Social keeps a queue of posts materialized from recurring schedules and campaigns,
publishes them through platform bridges when due and exposes everything over a REST API.`,
}

func init() {
	// Load environment variables first
	if err := utils.LoadConfig("."); err != nil {
		logrus.Warnf("[CONFIG] %v", err)
	}
	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("[CONFIG] %v", err)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig)
}

// initEnvConfig applies logging settings, which only viper reads.
func initEnvConfig() {
	if strings.EqualFold(viper.GetString("log_format"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level := logrus.InfoLevel
	if raw := viper.GetString("log_level"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	if coreconfig.Global.App.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}

func initFlags() {
	cfg := coreconfig.Global

	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.Port,
		"port", "p",
		cfg.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&cfg.App.Debug,
		"debug", "d",
		cfg.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.App.BasicAuth,
		"basic-auth", "b",
		cfg.App.BasicAuth,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.BasePath,
		"base-path", "",
		cfg.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/social"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.App.Timezone,
		"timezone", "",
		cfg.App.Timezone,
		`timezone used for posting times --timezone <string> | example: --timezone="America/Lima"`,
	)

	// Storage flags
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Store.Driver,
		"store", "",
		cfg.Store.Driver,
		`where schedules and posts are kept --store <file|gorm> | example: --store=gorm`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&cfg.Paths.Media,
		"media-dir", "m",
		cfg.Paths.Media,
		`default media pool directory --media-dir <path> | example: --media-dir="statics/media"`,
	)

	// Scheduler flags
	rootCmd.PersistentFlags().DurationVarP(
		&cfg.Scheduler.Interval,
		"interval", "i",
		cfg.Scheduler.Interval,
		`time between scheduler ticks --interval <duration> | example: --interval=30s`,
	)
	rootCmd.PersistentFlags().DurationVarP(
		&cfg.Scheduler.Lookahead,
		"lookahead", "",
		cfg.Scheduler.Lookahead,
		`how far ahead schedules are materialized --lookahead <duration> | example: --lookahead=72h`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&cfg.Platforms.DryRun,
		"dry-run", "",
		cfg.Platforms.DryRun,
		`platforms that only log instead of publishing --dry-run <list> | example: --dry-run=instagram,tiktok`,
	)

	// Publish worker pool flags
	rootCmd.PersistentFlags().IntVarP(
		&cfg.WorkerPool.Size,
		"publish-workers", "",
		cfg.WorkerPool.Size,
		`number of concurrent publish workers --publish-workers <number> | example: --publish-workers=8 (default: 4)`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&cfg.WorkerPool.QueueSize,
		"publish-queue-size", "",
		cfg.WorkerPool.QueueSize,
		`queue size per publish worker --publish-queue-size <number> | example: --publish-queue-size=200 (default: 100)`,
	)
}

// initApp builds the engine and the usecases. Commands call it from Run so that flag
// values are already applied.
func initApp() {
	cfg := coreconfig.Global
	appCtx, appCancel = context.WithCancel(context.Background())

	if err := utils.EnsureDirectories(); err != nil {
		logrus.Errorln(err)
	}
	serverID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logrus.Warnf("[CONFIG] unknown timezone %q, using UTC", cfg.App.Timezone)
		loc = time.UTC
	}

	// 1. Persistence
	switch cfg.Store.Driver {
	case "gorm":
		db, err := coreDB.NewDatabase(cfg)
		if err != nil {
			logrus.Fatalf("[STORE] %v", err)
		}
		store = repository.NewGormStore(db, cfg.Store.HistoryLimit)
	default:
		store = repository.NewJSONStore(cfg.Paths.Storages, cfg.Store.HistoryLimit)
	}
	if err := store.Init(appCtx); err != nil {
		logrus.Fatalf("[STORE] failed to initialize %s store: %v", cfg.Store.Driver, err)
	}

	// 2. Expiring KV (publish jobs, previews), shared through Valkey when enabled
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Warnf("[VALKEY] %v, falling back to in-memory cache", err)
		}
	}
	if vkClient != nil {
		kvStore = kvstore.NewValkeyStore(vkClient)
	} else {
		memoryKV = kvstore.NewMemoryStore(cfg.Cache.SweepInterval)
		kvStore = memoryKV
	}

	// 3. Events
	wsHub = websocket.NewHub()
	if vkClient != nil {
		wsHub.SetValkeyClient(vkClient, serverID)
	}
	monitor = activity.New(cfg.Cache.ActivityBuffer, cfg.Cache.ActivityTTL)
	notifier := common.MultiNotifier{common.LogNotifier{}, monitor, websocket.Notifier{Hub: wsHub}}

	// 4. Engine
	dispatcher := application.NewPublishDispatcher(platforms.NewRegistry(cfg.Platforms), cfg.Scheduler.PublishTimeout)
	generator := application.NewSlotGenerator(
		application.WithLocation(loc),
		application.WithHolidays(application.NewStaticHolidays(cfg.Scheduler.Holidays)),
	)
	captioner := gemini.NewCaptioner(gemini.Config{
		APIKey:        cfg.AI.GeminiAPIKey,
		Model:         cfg.AI.Model,
		Prompt:        cfg.AI.CaptionPrompt,
		MaxImageBytes: cfg.AI.MaxImageBytes,
		Timeout:       cfg.AI.Timeout,
	}, application.TemplateCaptioner{})

	scheduler = application.NewScheduler(
		application.SchedulerConfig{
			Interval:        cfg.Scheduler.Interval,
			Lookahead:       cfg.Scheduler.Lookahead,
			DefaultMediaDir: cfg.Paths.Media,
			ExcludeQueued:   cfg.Scheduler.ExcludeQueued,
		},
		store, generator, dispatcher, mediadir.Factory(cfg.Paths.Media),
		application.WithNotifier(notifier),
		application.WithCaptioner(captioner),
		application.WithSelection(selectionStrategy(cfg.Scheduler.Selection)),
	)

	// 5. Usecases
	publishPool = msgworker.GetGlobalPool()
	scheduleUsecase = usecase.NewScheduleService(store, scheduler, generator, notifier)
	postUsecase = usecase.NewPostService(
		usecase.PostServiceConfig{MediaDir: cfg.Paths.Media, JobTTL: cfg.Cache.JobTTL},
		scheduler, store, dispatcher, publishPool, kvStore, notifier,
	)
	campaigns := application.NewCampaignService(store, scheduler, notifier, loc)
	scheduler.OnOutcome(campaigns.HandleOutcome)
	campaignUsecase = usecase.NewCampaignService(campaigns, cfg.Paths.Media)
	schedulerUsecase = usecase.NewSchedulerService(scheduler)
	mediaUsecase = usecase.NewMediaService(usecase.MediaServiceConfig{
		Dir:           cfg.Paths.Media,
		MaxUploadSize: cfg.App.MaxUploadSize,
		PreviewWidth:  cfg.Cache.PreviewWidth,
		PreviewTTL:    cfg.Cache.PreviewTTL,
	}, kvStore)

	logrus.WithFields(logrus.Fields{
		"server_id": serverID,
		"store":     cfg.Store.Driver,
		"timezone":  loc.String(),
		"ai":        captioner.Enabled(),
	}).Info("[APP] Initialized")
}

func selectionStrategy(name string) func() application.SelectionStrategy {
	if strings.EqualFold(name, "round_robin") {
		return func() application.SelectionStrategy { return application.RoundRobinStrategy{} }
	}
	return func() application.SelectionStrategy { return application.NewRandomStrategy(nil) }
}

// startScheduler runs the queue owner and, when requested, the periodic ticks.
func startScheduler(autoStart bool) <-chan error {
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(appCtx) }()
	if autoStart {
		if err := scheduler.Start(); err != nil {
			logrus.WithError(err).Error("[SCHEDULER] failed to start")
		}
	}
	return done
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the scheduler, workers and connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if scheduler != nil {
		scheduler.Stop()
	}
	// In-flight publishes finish before the pool returns
	msgworker.StopGlobalPool()
	if appCancel != nil {
		appCancel()
	}
	if memoryKV != nil {
		memoryKV.Close()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if err := coreDB.Close(); err != nil {
		logrus.WithError(err).Warn("[STORE] failed to close database")
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
