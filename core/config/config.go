package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Store      StoreConfig
	Scheduler  SchedulerConfig
	Platforms  PlatformsConfig
	AI         AIConfig
	WorkerPool WorkerPoolConfig
	Cache      CacheConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
	Timezone           string
	MaxUploadSize      int64
}

type PathsConfig struct {
	BaseDir  string
	Statics  string
	Storages string
	Media    string // default media pool directory
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type StoreConfig struct {
	Driver       string // "file" or "gorm"
	HistoryLimit int
}

type SchedulerConfig struct {
	Interval       time.Duration
	Lookahead      time.Duration
	PublishTimeout time.Duration
	AutoStart      bool
	ExcludeQueued  bool
	Selection      string // "random" or "round_robin"
	Holidays       []string
}

type PlatformsConfig struct {
	Webhooks       map[string]string // platform -> bridge URL
	WebhookSecret  string
	WebhookTimeout time.Duration
	DryRun         []string
}

type AIConfig struct {
	GeminiAPIKey  string
	Model         string
	CaptionPrompt string
	MaxImageBytes int64
	Timeout       time.Duration
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type CacheConfig struct {
	JobTTL        time.Duration
	PreviewTTL    time.Duration
	SweepInterval time.Duration
	PreviewWidth  int
	// Activity feed served at /api/app/activity
	ActivityBuffer int
	ActivityTTL    time.Duration
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false) || getEnvBool("DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          getEnvList("APP_BASIC_AUTH", nil),
		BasePath:           getEnv("APP_BASE_PATH", ""),
		TrustedProxies:     getEnvList("APP_TRUSTED_PROXIES", nil),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: getEnvList("APP_CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		ServerID:           getEnv("SERVER_ID", ""),
		Timezone:           getEnv("APP_TIMEZONE", "UTC"),
		MaxUploadSize:      getEnvInt64("APP_MAX_UPLOAD_SIZE", 200*1024*1024),
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Statics:  getEnv("PATH_STATICS", "statics"),
		Storages: baseDir,
		Media:    getEnv("PATH_MEDIA", filepath.Join("statics", "media")),
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "social.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azsocial:"),
	}

	schedCfg := SchedulerConfig{
		Interval:       getEnvDuration("SCHEDULER_INTERVAL", 60*time.Second),
		Lookahead:      getEnvDuration("SCHEDULER_LOOKAHEAD", 7*24*time.Hour),
		PublishTimeout: getEnvDuration("PUBLISH_TIMEOUT", 2*time.Minute),
		AutoStart:      getEnvBool("SCHEDULER_AUTO_START", true),
		ExcludeQueued:  getEnvBool("SCHEDULER_EXCLUDE_QUEUED", false),
		Selection:      getEnv("SCHEDULER_SELECTION", "random"),
		Holidays:       getEnvList("SCHEDULER_HOLIDAYS", nil),
	}

	platformsCfg := PlatformsConfig{
		Webhooks:       parseWebhooks(getEnv("PLATFORM_WEBHOOKS", "")),
		WebhookSecret:  getEnv("PLATFORM_WEBHOOK_SECRET", ""),
		WebhookTimeout: getEnvDuration("PLATFORM_WEBHOOK_TIMEOUT", 90*time.Second),
		DryRun:         getEnvList("PLATFORM_DRY_RUN", nil),
	}

	aiCfg := AIConfig{
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", getEnv("AI_API_KEY", "")),
		Model:         getEnv("AI_CAPTION_MODEL", "gemini-2.5-flash"),
		CaptionPrompt: getEnv("AI_CAPTION_PROMPT", ""),
		MaxImageBytes: getEnvInt64("AI_MAX_IMAGE_BYTES", 4*1024*1024),
		Timeout:       getEnvDuration("AI_TIMEOUT", 30*time.Second),
	}

	cfg := &Config{
		App:        appCfg,
		Paths:      pathsCfg,
		Database:   dbCfg,
		Store:      StoreConfig{Driver: getEnv("STORE_DRIVER", "file"), HistoryLimit: getEnvInt("STORE_HISTORY_LIMIT", 500)},
		Scheduler:  schedCfg,
		Platforms:  platformsCfg,
		AI:         aiCfg,
		WorkerPool: WorkerPoolConfig{Size: getEnvInt("PUBLISH_WORKER_POOL_SIZE", 4), QueueSize: getEnvInt("PUBLISH_WORKER_QUEUE_SIZE", 100)},
		Cache: CacheConfig{
			JobTTL:        getEnvDuration("CACHE_JOB_TTL", time.Hour),
			PreviewTTL:    getEnvDuration("CACHE_PREVIEW_TTL", 30*time.Minute),
			SweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", time.Minute),
			PreviewWidth:  getEnvInt("CACHE_PREVIEW_WIDTH", 320),

			ActivityBuffer: getEnvInt("ACTIVITY_BUFFER", 200),
			ActivityTTL:    getEnvDuration("ACTIVITY_TTL", 0),
		},
	}

	Global = cfg
	return cfg, nil
}

// parseWebhooks reads "instagram=https://a,tiktok=https://b".
func parseWebhooks(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" || url == "" {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(url)
	}
	return out
}
