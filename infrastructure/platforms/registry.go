package platforms

import (
	"strings"

	coreconfig "github.com/AzielCF/az-social/core/config"
	"github.com/AzielCF/az-social/scheduling/domain/platform"
	"github.com/sirupsen/logrus"
)

// NewRegistry registers a webhook publisher per configured bridge and a dry-run
// publisher per dry-run platform. Webhooks win when a name appears in both.
func NewRegistry(cfg coreconfig.PlatformsConfig) *platform.Registry {
	reg := platform.NewRegistry()
	for _, name := range cfg.DryRun {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		reg.Register(name, DryRunPublisher{Platform: name})
	}
	for name, url := range cfg.Webhooks {
		reg.Register(name, NewWebhookPublisher(name, url, cfg.WebhookSecret, cfg.WebhookTimeout))
	}
	logrus.Infof("[PLATFORM] registered platforms: %s", strings.Join(reg.Names(), ", "))
	return reg
}
