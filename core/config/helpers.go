package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns the non-secret settings currently loaded in memory.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	platforms := make([]string, 0, len(Global.Platforms.Webhooks))
	for name := range Global.Platforms.Webhooks {
		platforms = append(platforms, name)
	}
	return map[string]any{
		"app_version":               Global.App.Version,
		"app_debug":                 Global.App.Debug,
		"app_timezone":              Global.App.Timezone,
		"store_driver":              Global.Store.Driver,
		"scheduler_interval":        Global.Scheduler.Interval.String(),
		"scheduler_lookahead":       Global.Scheduler.Lookahead.String(),
		"scheduler_selection":       Global.Scheduler.Selection,
		"scheduler_exclude_queued":  Global.Scheduler.ExcludeQueued,
		"publish_timeout":           Global.Scheduler.PublishTimeout.String(),
		"platform_webhooks":         platforms,
		"platform_dry_run":          Global.Platforms.DryRun,
		"ai_caption_enabled":        Global.AI.GeminiAPIKey != "",
		"publish_worker_pool_size":  Global.WorkerPool.Size,
		"publish_worker_queue_size": Global.WorkerPool.QueueSize,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
