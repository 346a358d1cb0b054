// Package jobs holds the storefront's queued background work.
package jobs

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/kirana/app/services/classifier"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/queue"
)

// ReclassifyJob recomputes category types after a catalog write.
type ReclassifyJob struct {
	Reason string `json:"reason"`

	classifier *classifier.Classifier
}

// Handle fails while any category write failed, so the queue retries.
func (j *ReclassifyJob) Handle(ctx context.Context) error {
	report, err := j.classifier.Run(ctx)
	if err != nil {
		return err
	}
	logger.WithCtx(ctx).Info("jobs: catalog reclassified",
		"reason", j.Reason, "updated", report.Updated, "failed", len(report.Failed))
	if len(report.Failed) > 0 {
		return fmt.Errorf("jobs: %d category writes failed", len(report.Failed))
	}
	return nil
}

// Register makes ReclassifyJob decodable by m, bound to c.
func Register(m *queue.Manager, c *classifier.Classifier) {
	m.Register(fmt.Sprintf("%T", &ReclassifyJob{}), func() queue.Job {
		return &ReclassifyJob{classifier: c}
	})
}
