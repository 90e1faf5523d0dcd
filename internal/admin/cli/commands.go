package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/dbx"
	"github.com/dmitrijs2005/newsletter/internal/server/domain"
	"github.com/dmitrijs2005/newsletter/internal/server/models"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

func (a *App) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPool(func(pool *dbx.Pool) error {
				if err := a.repomanager.RunMigrations(cmd.Context(), pool.DB()); err != nil {
					return fmt.Errorf("migrations error: %w", err)
				}
				a.printf("Migrations applied\n")
				return nil
			})
		},
	}
}

func (a *App) createUserCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an administrator account",
		Long: `Create an administrator account. The password is read from the
terminal without echo, or one line per prompt when input is piped.

Example:
  newsletter-admin create-user --username alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if username == "" {
				return fmt.Errorf("%w: username is required", common.ErrInvalidInput)
			}

			pw, err := newPrompter(a.in, a.out).NewPassword()
			if err != nil {
				return err
			}
			defer pw.Clear()

			if err := domain.ValidateNewPassword(pw); err != nil {
				return err
			}

			hash, err := passwords.Hash(pw)
			if err != nil {
				return err
			}

			return a.withPool(func(pool *dbx.Pool) error {
				u, err := a.createUser(cmd.Context(), pool, username, hash)
				if err != nil {
					return err
				}
				a.printf("Created user %s (%s)\n", u.Username, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "login name of the new administrator")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *App) createUser(ctx context.Context, pool *dbx.Pool, username, hash string) (*models.User, error) {
	var out *models.User
	err := pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		u, err := a.repomanager.Users(db).Create(ctx, &models.User{Username: username, PasswordHash: hash})
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (a *App) hashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print the Argon2id hash of a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := newPrompter(a.in, a.out).Password("Enter password")
			if err != nil {
				return err
			}
			defer pw.Clear()

			hash, err := passwords.Hash(pw)
			if err != nil {
				return err
			}
			a.printf("%s\n", hash)
			return nil
		},
	}
}

func (a *App) genSecretCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Print a random hex secret for HMAC or session keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 16 {
				return fmt.Errorf("%w: at least 16 bytes", common.ErrInvalidInput)
			}
			s, err := common.MakeRandHexString(size)
			if err != nil {
				return err
			}
			a.printf("%s\n", s)
			return nil
		},
	}
	cmd.Flags().IntVarP(&size, "bytes", "n", 32, "number of random bytes")
	return cmd
}
