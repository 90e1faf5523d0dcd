package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/archive"
	"github.com/dmitrijs2005/newsletter/internal/server/delivery"
	"github.com/dmitrijs2005/newsletter/internal/server/domain"
	"github.com/dmitrijs2005/newsletter/internal/server/models"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/repomanager"
)

// PublishResult describes one broadcast.
type PublishResult struct {
	Issue      *models.Issue
	Report     delivery.Report
	ArchiveKey string
}

type NewsletterService struct {
	pool        *dbx.Pool
	repomanager repomanager.RepositoryManager
	dispatcher  delivery.Dispatcher
	archiver    archive.Archiver
	logger      logging.Logger

	now func() time.Time
}

func NewNewsletterService(pool *dbx.Pool, m repomanager.RepositoryManager, d delivery.Dispatcher, a archive.Archiver, logger logging.Logger) *NewsletterService {
	return &NewsletterService{
		pool:        pool,
		repomanager: m,
		dispatcher:  d,
		archiver:    a,
		logger:      logger.With("module", "newsletters"),
		now:         time.Now,
	}
}

// Publish sends issue to every confirmed subscriber. Stored addresses that
// no longer parse are skipped with a warning. An archive failure is logged
// and does not fail the publish.
func (s *NewsletterService) Publish(ctx context.Context, userID string, in domain.NewIssue) (*PublishResult, error) {
	var subscribers []models.Subscriber
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		subscribers, err = s.repomanager.Subscribers(db).ListConfirmed(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list confirmed subscribers: %w", common.ErrorInternal, err)
	}

	recipients := make([]string, 0, len(subscribers))
	for _, sub := range subscribers {
		if !domain.IsValidEmail(sub.Email) {
			s.logger.Warn(ctx, "skipping confirmed subscriber with invalid email", "subscriber_id", sub.ID)
			continue
		}
		recipients = append(recipients, sub.Email)
	}

	issue := &models.Issue{
		ID:          uuid.NewString(),
		Title:       in.Title,
		HTMLContent: in.HTMLContent,
		TextContent: in.TextContent,
		PublishedAt: s.now().UTC(),
	}

	report, err := s.dispatcher.Dispatch(ctx, issue, recipients)
	if err != nil {
		return nil, fmt.Errorf("%w: dispatch: %w", common.ErrorInternal, err)
	}

	key, err := s.archiver.Archive(ctx, issue)
	if err != nil {
		s.logger.Warn(ctx, "issue archive failed", "issue_id", issue.ID, "error", err)
	}

	s.logger.Info(ctx, "newsletter published",
		"issue_id", issue.ID, "user_id", userID,
		"sent", report.Sent, "queued", report.Queued, "failed", report.Failed)

	return &PublishResult{Issue: issue, Report: report, ArchiveKey: key}, nil
}
