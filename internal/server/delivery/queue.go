package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/metrics"
	"github.com/dmitrijs2005/newsletter/internal/server/models"
)

const (
	TypeDeliver = "newsletter:deliver"
	QueueName   = "newsletter"

	DefaultMaxRetry = 3
)

// DeliverPayload is the body of one TypeDeliver task.
type DeliverPayload struct {
	IssueID   string `json:"issue_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	Text      string `json:"text"`
}

// Enqueuer is the part of *asynq.Client the dispatcher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher enqueues one task per recipient; the Worker sends them
// and asynq retries failures up to maxRetry times.
type QueueDispatcher struct {
	client   Enqueuer
	maxRetry int
	logger   logging.Logger
}

func NewQueueDispatcher(client Enqueuer, maxRetry int, logger logging.Logger) *QueueDispatcher {
	if maxRetry < 0 {
		maxRetry = DefaultMaxRetry
	}
	return &QueueDispatcher{client: client, maxRetry: maxRetry, logger: logger.With("module", "delivery")}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, issue *models.Issue, recipients []string) (Report, error) {
	ctx = context.WithoutCancel(ctx)

	var report Report
	for _, r := range recipients {
		if err := d.enqueue(ctx, issue, r); err != nil {
			d.logger.Warn(ctx, "newsletter enqueue failed", "issue_id", issue.ID, "recipient", r, "error", err)
			metrics.RecordDelivery(metrics.StatusFailed)
			report.Failed++
			continue
		}
		metrics.RecordDelivery(metrics.StatusQueued)
		report.Queued++
	}
	return report, nil
}

func (d *QueueDispatcher) enqueue(ctx context.Context, issue *models.Issue, recipient string) error {
	body, err := json.Marshal(DeliverPayload{
		IssueID:   issue.ID,
		Recipient: recipient,
		Subject:   issue.Title,
		HTML:      issue.HTMLContent,
		Text:      issue.TextContent,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeDeliver, body, asynq.Queue(QueueName))
	if _, err := d.client.EnqueueContext(ctx, task, asynq.MaxRetry(d.maxRetry)); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}
