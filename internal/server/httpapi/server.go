// Package httpapi is the HTTP surface of the newsletter: public signup and
// confirmation, the admin area behind a login session, and the Basic-auth
// publish endpoint.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/auth"
	"github.com/dmitrijs2005/newsletter/internal/server/domain"
	"github.com/dmitrijs2005/newsletter/internal/server/flash"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
	"github.com/dmitrijs2005/newsletter/internal/server/services"
	"github.com/dmitrijs2005/newsletter/internal/server/throttle"
)

type Authenticator interface {
	Verify(ctx context.Context, c auth.Credentials) (string, error)
	ChangePassword(ctx context.Context, userID string, current, next passwords.Secret) error
}

type SubscriptionService interface {
	Subscribe(ctx context.Context, ns domain.NewSubscriber) error
	Confirm(ctx context.Context, token string) error
}

type NewsletterService interface {
	Publish(ctx context.Context, userID string, in domain.NewIssue) (*services.PublishResult, error)
}

// UserDirectory resolves the username shown on the dashboard.
type UserDirectory interface {
	Username(ctx context.Context, userID string) (string, error)
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Auth          Authenticator
	Subscriptions SubscriptionService
	Newsletters   NewsletterService
	Users         UserDirectory
	Messenger     flash.Messenger
	Sessions      SessionStrategy
	Limiter       throttle.Limiter
	Logger        logging.Logger
}

const shutdownTimeout = 10 * time.Second

type Server struct {
	address string
	engine  *gin.Engine
	logger  logging.Logger
}

func NewServer(address string, d Deps) *Server {
	return &Server{
		address: address,
		engine:  NewRouter(d),
		logger:  d.Logger.With("module", "http_server"),
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
