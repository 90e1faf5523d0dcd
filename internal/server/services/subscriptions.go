// Package services implements the newsletter use cases on top of the
// repositories: double opt-in subscription and issue publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/metrics"
	"github.com/dmitrijs2005/newsletter/internal/server/domain"
	"github.com/dmitrijs2005/newsletter/internal/server/models"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/newsletter/internal/server/tokens"
)

// EmailSender delivers a single message.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, html, text string) error
}

const confirmPath = "/subscriptions/confirm"

type SubscriptionService struct {
	pool        *dbx.Pool
	repomanager repomanager.RepositoryManager
	sender      EmailSender
	baseURL     string
	logger      logging.Logger

	newToken func() (string, error)
}

func NewSubscriptionService(pool *dbx.Pool, m repomanager.RepositoryManager, sender EmailSender, baseURL string, logger logging.Logger) *SubscriptionService {
	return &SubscriptionService{
		pool:        pool,
		repomanager: m,
		sender:      sender,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger.With("module", "subscriptions"),
		newToken:    tokens.Generate,
	}
}

// Subscribe stores a pending subscriber, issues its confirmation token and
// mails the confirmation link, all in one transaction. If any step fails
// nothing is persisted and the error wraps common.ErrorInternal. Once
// started, the transaction and the send run to completion even if the
// caller goes away.
func (s *SubscriptionService) Subscribe(ctx context.Context, ns domain.NewSubscriber) error {
	ctx = context.WithoutCancel(ctx)

	err := s.pool.WithTx(ctx, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sub, err := s.repomanager.Subscribers(tx).Create(ctx, &models.Subscriber{Email: ns.Email, Name: ns.Name})
		if err != nil {
			return fmt.Errorf("error creating subscriber: %w", err)
		}

		token, err := s.newToken()
		if err != nil {
			return fmt.Errorf("error generating token: %w", err)
		}

		if err := s.repomanager.SubscriptionTokens(tx).Create(ctx, sub.ID, token); err != nil {
			return fmt.Errorf("error storing token: %w", err)
		}

		if err := s.sendConfirmation(ctx, sub.Email, token); err != nil {
			return fmt.Errorf("error sending confirmation: %w", err)
		}
		return nil
	})
	if err != nil {
		metrics.RecordSubscription(metrics.StatusRejected)
		return fmt.Errorf("%w: subscribe: %w", common.ErrorInternal, err)
	}

	metrics.RecordSubscription(metrics.StatusCreated)
	s.logger.Info(ctx, "subscriber created")
	return nil
}

// ConfirmationLink builds the link mailed to a new subscriber.
func (s *SubscriptionService) ConfirmationLink(token string) string {
	return s.baseURL + confirmPath + "?subscription_token=" + token
}

func (s *SubscriptionService) sendConfirmation(ctx context.Context, recipient, token string) error {
	link := s.ConfirmationLink(token)
	html := fmt.Sprintf(`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`, link)
	text := fmt.Sprintf("Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	return s.sender.Send(ctx, recipient, "Welcome!", html, text)
}

// Confirm redeems token. Unknown or already used tokens yield
// common.ErrorUnauthorized; store failures wrap common.ErrorInternal.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	var subscriberID string
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var err error
		subscriberID, err = s.repomanager.SubscriptionTokens(db).Redeem(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("%w: confirm: %w", common.ErrorInternal, err)
	}

	metrics.RecordSubscription(metrics.StatusConfirmed)
	s.logger.Info(ctx, "subscription confirmed", "subscriber_id", subscriberID)
	return nil
}
