package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrAcquireTimeout is returned when no connection became free in time.
var ErrAcquireTimeout = errors.New("connection acquire timeout")

// PoolOptions bounds the underlying *sql.DB.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AcquireTimeout  time.Duration
}

// Pool hands out connections from a bounded *sql.DB. Every acquisition is
// limited by AcquireTimeout; the work done on the connection is not.
type Pool struct {
	db             *sql.DB
	acquireTimeout time.Duration
}

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(dsn string, opts PoolOptions) (*Pool, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return NewPool(db, opts.AcquireTimeout), nil
}

// NewPool wraps an already opened *sql.DB.
func NewPool(db *sql.DB, acquireTimeout time.Duration) *Pool {
	return &Pool{db: db, acquireTimeout: acquireTimeout}
}

// DB exposes the underlying handle for migrations.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Conn acquires a dedicated connection. The caller must Close it.
func (p *Pool) Conn(ctx context.Context) (*sql.Conn, error) {
	actx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	conn, err := p.db.Conn(actx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrAcquireTimeout, p.acquireTimeout)
		}
		return nil, fmt.Errorf("db acquire error: %w", err)
	}
	return conn, nil
}

// WithConn runs fn on a pooled connection outside any transaction.
func (p *Pool) WithConn(ctx context.Context, fn func(ctx context.Context, db DBTX) error) error {
	conn, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(ctx, conn)
}

// WithTx runs fn inside a transaction on a pooled connection.
func (p *Pool) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	conn, err := p.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return WithTx(ctx, conn, opts, fn)
}

// Ping checks that a connection can be acquired and used.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConn(ctx, func(ctx context.Context, db DBTX) error {
		_, err := db.ExecContext(ctx, "SELECT 1")
		return err
	})
}

func (p *Pool) Close() error {
	return p.db.Close()
}
