// Package cli implements newsletter-admin, the operator tool that migrates
// the schema and manages administrator accounts.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/server/config"
	"github.com/dmitrijs2005/newsletter/internal/server/repositories/repomanager"
)

// DSNEnv overrides the default database DSN, same as for the server.
const DSNEnv = "NEWSLETTER_DATABASE_DSN"

// App holds what the commands share. The function fields are seams for tests.
type App struct {
	in  io.Reader
	out io.Writer

	dsn string

	openPool    func(dsn string) (*dbx.Pool, error)
	repomanager repomanager.RepositoryManager
}

func NewApp(in io.Reader, out io.Writer) *App {
	return &App{
		in:  in,
		out: out,
		openPool: func(dsn string) (*dbx.Pool, error) {
			return dbx.Open(dsn, dbx.PoolOptions{MaxOpenConns: 2, AcquireTimeout: 5 * time.Second})
		},
		repomanager: repomanager.NewPostgresRepositoryManager(),
	}
}

func defaultDSN() string {
	if dsn := os.Getenv(DSNEnv); dsn != "" {
		return dsn
	}
	c := &config.Config{}
	c.LoadDefaults()
	return c.DatabaseDSN
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsletter-admin",
		Short:         "Administer the newsletter backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.out)
	root.PersistentFlags().StringVarP(&a.dsn, "dsn", "d", defaultDSN(), "database connection string")

	root.AddCommand(
		a.migrateCommand(),
		a.createUserCommand(),
		a.hashPasswordCommand(),
		a.genSecretCommand(),
	)
	return root
}

// Execute runs the command line in args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.RootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *App) withPool(fn func(pool *dbx.Pool) error) error {
	pool, err := a.openPool(a.dsn)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
