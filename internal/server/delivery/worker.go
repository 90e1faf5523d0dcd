package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/metrics"
)

// Worker consumes TypeDeliver tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	logger logging.Logger
}

func NewWorker(opt asynq.RedisConnOpt, concurrency int, sender Sender, logger logging.Logger) *Worker {
	w := &Worker{
		mux:    asynq.NewServeMux(),
		sender: sender,
		logger: logger.With("module", "delivery_worker"),
	}
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			w.logger.Warn(ctx, "delivery task failed", "type", task.Type(), "error", err)
			metrics.RecordDelivery(metrics.StatusFailed)
		}),
	})
	w.mux.HandleFunc(TypeDeliver, w.HandleDeliver)
	return w
}

// HandleDeliver sends one queued message. Malformed payloads are not
// retried.
func (w *Worker) HandleDeliver(ctx context.Context, task *asynq.Task) error {
	var p DeliverPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.Recipient == "" {
		return fmt.Errorf("missing recipient: %w", asynq.SkipRetry)
	}

	if err := w.sender.Send(ctx, p.Recipient, p.Subject, p.HTML, p.Text); err != nil {
		return err
	}
	metrics.RecordDelivery(metrics.StatusSent)
	return nil
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		return err
	}
	return nil
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}
