package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/AzielCF/az-social/scheduling/domain/platform"
	"github.com/sirupsen/logrus"
)

// DefaultPublishTimeout bounds a single platform call when none is configured.
const DefaultPublishTimeout = 2 * time.Minute

// PublishDispatcher fans a post out to its platforms and aggregates the outcome.
type PublishDispatcher struct {
	registry *platform.Registry
	timeout  time.Duration
}

func NewPublishDispatcher(registry *platform.Registry, timeout time.Duration) *PublishDispatcher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if registry == nil {
		registry = platform.NewRegistry()
	}
	return &PublishDispatcher{registry: registry, timeout: timeout}
}

type platformResult struct {
	platform string
	result   common.PlatformResult
}

// Dispatch publishes media to every platform concurrently. Each platform gets its own
// deadline; the overall outcome succeeds when at least one platform did.
func (d *PublishDispatcher) Dispatch(ctx context.Context, platforms []string, media common.Publishable, caption string) common.DispatchOutcome {
	targets := common.NormalizedPlatforms(platforms)
	outcome := common.DispatchOutcome{Results: make(map[string]common.PlatformResult, len(targets))}
	if len(targets) == 0 {
		return outcome
	}

	results := make(chan platformResult, len(targets))
	var wg sync.WaitGroup
	for _, name := range targets {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			results <- platformResult{platform: name, result: d.publishOne(ctx, name, media, caption)}
		}(name)
	}
	wg.Wait()
	close(results)

	for r := range results {
		outcome.Results[r.platform] = r.result
	}
	outcome.Success = outcome.SuccessCount() >= 1

	logrus.WithFields(logrus.Fields{
		"media":     media.Path(),
		"kind":      media.Kind(),
		"succeeded": outcome.SuccessCount(),
		"attempted": len(targets),
	}).Info("[DISPATCH] fan-out finished")
	return outcome
}

func (d *PublishDispatcher) publishOne(ctx context.Context, name string, media common.Publishable, caption string) (res common.PlatformResult) {
	publisher, ok := d.registry.Get(name)
	if !ok {
		return common.PlatformResult{OK: false, Message: "platform not configured"}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[DISPATCH] %s client panicked: %v", name, r)
			res = common.PlatformResult{OK: false, Message: fmt.Sprintf("platform client panicked: %v", r)}
		}
	}()

	start := time.Now()
	msg, err := publisher.Publish(callCtx, media, caption)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", d.timeout, err)
		}
		logrus.WithError(err).Warnf("[DISPATCH] %s failed for %s", name, media.Path())
		return common.PlatformResult{OK: false, Message: err.Error()}
	}
	if msg == "" {
		msg = fmt.Sprintf("published %s", media.Kind())
	}
	logrus.Debugf("[DISPATCH] %s ok in %s", name, time.Since(start))
	return common.PlatformResult{OK: true, Message: msg}
}
