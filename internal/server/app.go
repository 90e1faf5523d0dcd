// Package server assembles the newsletter backend from its configuration:
// storage, password verification, delivery, the HTTP application and the
// gRPC health endpoint, and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/logging"
	"github.com/dmitrijs2005/newsletter/internal/server/archive"
	"github.com/dmitrijs2005/newsletter/internal/server/auth"
	"github.com/dmitrijs2005/newsletter/internal/server/config"
	"github.com/dmitrijs2005/newsletter/internal/server/delivery"
	"github.com/dmitrijs2005/newsletter/internal/server/email"
	"github.com/dmitrijs2005/newsletter/internal/server/flash"
	"github.com/dmitrijs2005/newsletter/internal/server/httpapi"
	"github.com/dmitrijs2005/newsletter/internal/server/offload"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/newsletter/internal/server/services"
	"github.com/dmitrijs2005/newsletter/internal/server/throttle"

	gs "github.com/dmitrijs2005/newsletter/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger

	pool    *dbx.Pool
	offload *offload.Pool
	rdb     *redis.Client
	queue   *asynq.Client
	worker  *delivery.Worker

	http *httpapi.Server
	grpc *gs.GRPCServer

	closers []func() error
}

// NewApp connects to the database, applies migrations and builds every
// component. On error everything opened so far is closed.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))
	app := &App{config: c, logger: logger}

	defer func() {
		if err != nil {
			app.close()
		}
	}()

	if c.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	app.pool, err = dbx.Open(c.DatabaseDSN, dbx.PoolOptions{
		MaxOpenConns:   c.DBMaxOpenConns,
		MaxIdleConns:   c.DBMaxIdleConns,
		AcquireTimeout: c.DBAcquireTimeout,
	})
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.pool.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err = rm.RunMigrations(ctx, app.pool.DB()); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	dummy, err := passwords.NewDummyHash()
	if err != nil {
		return nil, fmt.Errorf("dummy hash error: %w", err)
	}

	app.offload = offload.NewPool(c.HashWorkers)
	app.closers = append(app.closers, func() error { app.offload.Close(); return nil })

	store := auth.NewPostgresStore(app.pool, rm)
	authenticator := auth.NewAuthenticator(store, app.offload, dummy, logger)

	mailer := email.NewClient(c.EmailBaseURL, c.EmailSender, c.EmailAuthToken, c.EmailTimeout)

	if c.RedisURL != "" {
		if err = app.initRedis(); err != nil {
			return nil, err
		}
	}

	dispatcher, err := app.newDispatcher(mailer)
	if err != nil {
		return nil, err
	}

	archiver, err := app.newArchiver(ctx)
	if err != nil {
		return nil, err
	}

	subscriptions := services.NewSubscriptionService(app.pool, rm, mailer, c.BaseURL, logger)
	newsletters := services.NewNewsletterService(app.pool, rm, dispatcher, archiver, logger)

	deps := httpapi.Deps{
		Auth:          authenticator,
		Subscriptions: subscriptions,
		Newsletters:   newsletters,
		Users:         store,
		Limiter:       app.newLimiter(),
		Logger:        logger,
	}
	switch c.SessionMode {
	case config.SessionModeStateless:
		deps.Sessions = httpapi.NewTokenSession(c.SessionSecret, c.SessionTTL, c.ReleaseMode)
		deps.Messenger = flash.NewSignedMessenger(c.HMACSecret, logger)
	default:
		deps.Sessions = httpapi.NewCookieSession(c.SessionSecret, c.SessionTTL, c.ReleaseMode)
		deps.Messenger = flash.NewSessionMessenger(logger)
	}

	app.http = httpapi.NewServer(c.HTTPAddr, deps)
	app.grpc = gs.NewGRPCServer(c.GRPCAddr, logger, app.pool, 0)

	return app, nil
}

func (app *App) initRedis() error {
	opt, err := redis.ParseURL(app.config.RedisURL)
	if err != nil {
		return fmt.Errorf("redis url error: %w", err)
	}
	app.rdb = redis.NewClient(opt)
	app.closers = append(app.closers, app.rdb.Close)
	return nil
}

func (app *App) newLimiter() throttle.Limiter {
	if app.rdb == nil {
		return throttle.NopLimiter{}
	}
	return throttle.NewRedisLimiter(app.rdb, app.config.LoginMaxAttempts, app.config.LoginWindow)
}

func (app *App) newDispatcher(sender delivery.Sender) (delivery.Dispatcher, error) {
	if app.config.DeliveryMode != config.DeliveryModeQueue {
		return delivery.NewInlineDispatcher(sender, app.logger), nil
	}

	opt, err := asynq.ParseRedisURI(app.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq redis url error: %w", err)
	}
	app.queue = asynq.NewClient(opt)
	app.closers = append(app.closers, app.queue.Close)
	app.worker = delivery.NewWorker(opt, app.config.DeliveryWorkers, sender, app.logger)

	return delivery.NewQueueDispatcher(app.queue, delivery.DefaultMaxRetry, app.logger), nil
}

func (app *App) newArchiver(ctx context.Context) (archive.Archiver, error) {
	c := app.config
	if c.S3Bucket == "" {
		return archive.NopArchiver{}, nil
	}
	client, err := archive.NewS3Client(ctx, archive.S3Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    string(c.S3SecretKey.Bytes()),
	})
	if err != nil {
		return nil, err
	}
	return archive.NewS3Archiver(client, c.S3Bucket), nil
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

// Run serves HTTP and gRPC (and the delivery worker in queue mode) until
// ctx is cancelled or SIGINT/SIGTERM/SIGQUIT arrives, then releases all
// resources.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.close()

	app.logger.Info(ctx, "Starting app...", "session_mode", app.config.SessionMode, "delivery_mode", app.config.DeliveryMode)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.http.Run(ctx) })
	g.Go(func() error { return app.grpc.Run(ctx) })

	if app.worker != nil {
		if err := app.worker.Start(); err != nil {
			return fmt.Errorf("delivery worker error: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			app.worker.Shutdown()
			return nil
		})
	}

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
