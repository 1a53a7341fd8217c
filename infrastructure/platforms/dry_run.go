package platforms

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/sirupsen/logrus"
)

// DryRunPublisher accepts every post without contacting anything.
type DryRunPublisher struct {
	Platform string
}

func (d DryRunPublisher) Publish(ctx context.Context, media common.Publishable, caption string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"media":   media.Path(),
		"kind":    media.Kind(),
		"caption": caption,
	}).Infof("[PLATFORM:%s] dry run", d.Platform)
	return fmt.Sprintf("Dry run: %s would be posted to %s", filepath.Base(media.Path()), d.Platform), nil
}
