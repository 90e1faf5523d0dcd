// Package delivery fans a newsletter issue out to its recipients, either
// inline from the publishing request or through an asynq queue.
package delivery

import (
	"context"

	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/metrics"
	"github.com/dmitrijs2005/newsletter/internal/server/models"
)

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, recipient, subject, html, text string) error
}

// Report counts per-recipient outcomes of one dispatch.
type Report struct {
	Sent   int `json:"sent"`
	Queued int `json:"queued"`
	Failed int `json:"failed"`
}

// Dispatcher hands an issue to every recipient. A failure for one recipient
// is counted in the Report and never aborts the rest.
type Dispatcher interface {
	Dispatch(ctx context.Context, issue *models.Issue, recipients []string) (Report, error)
}

// InlineDispatcher sends sequentially and does not retry.
type InlineDispatcher struct {
	sender Sender
	logger logging.Logger
}

func NewInlineDispatcher(sender Sender, logger logging.Logger) *InlineDispatcher {
	return &InlineDispatcher{sender: sender, logger: logger.With("module", "delivery")}
}

// Dispatch runs to completion even if ctx is cancelled halfway.
func (d *InlineDispatcher) Dispatch(ctx context.Context, issue *models.Issue, recipients []string) (Report, error) {
	ctx = context.WithoutCancel(ctx)

	var report Report
	for _, r := range recipients {
		if err := d.sender.Send(ctx, r, issue.Title, issue.HTMLContent, issue.TextContent); err != nil {
			d.logger.Warn(ctx, "newsletter delivery failed", "issue_id", issue.ID, "recipient", r, "error", err)
			metrics.RecordDelivery(metrics.StatusFailed)
			report.Failed++
			continue
		}
		metrics.RecordDelivery(metrics.StatusSent)
		report.Sent++
	}
	return report, nil
}
