package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spec-kit/feedx-service/internal/config"
	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/observability"
	"github.com/spec-kit/feedx-service/internal/repository"
	"github.com/spec-kit/feedx-service/internal/service"
)

var errEmptyPassword = errors.New("password must not be empty")

type cli struct {
	out          io.Writer
	readPassword func(fd int) ([]byte, error)
	loadConfig   func() (*config.Config, error)
	logger       *zap.Logger
}

func newCLI() *cli {
	return &cli{
		out:          os.Stdout,
		readPassword: term.ReadPassword,
		loadConfig:   config.Load,
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "feedxctl",
		Short: "Administer the FEEDX issue service",
		Long: `feedxctl talks to the store configured by the service environment
(STORE_DRIVER, POSTGRES_DSN or SQLITE_PATH).

Examples:
  feedxctl migrate
  feedxctl adduser --name "Dr Rao" --email rao@example.edu --role faculty
  feedxctl resetpassword --email rao@example.edu`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.AddCommand(c.migrateCmd(), c.addUserCmd(), c.resetPasswordCmd())
	return root
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, err := c.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(c.out, "schema up to date (%s)\n", cfg.Store.Driver)
			return nil
		},
	}
}

func (c *cli) addUserCmd() *cobra.Command {
	var account service.NewAccount
	var role string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an account with any role; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := c.promptPassword()
			if err != nil {
				return err
			}
			cfg, store, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer store.Close()

			account.Role = domain.Role(role)
			account.Password = password
			authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: store.Users})
			user, err := authService.CreateUser(cmd.Context(), account)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&account.Name, "name", "", "display name")
	cmd.Flags().StringVar(&account.Email, "email", "", "login email")
	cmd.Flags().StringVar(&account.Department, "department", "", "department")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "student, faculty or admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Replace an account password; the new password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := c.promptPassword()
			if err != nil {
				return err
			}
			cfg, store, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer store.Close()

			authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: store.Users})
			if err := authService.ResetPassword(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "password updated for %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) promptPassword() (string, error) {
	fmt.Fprint(c.out, "Enter password: ")
	pwd, err := c.readPassword(int(syscall.Stdin))
	fmt.Fprintln(c.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func (c *cli) open(ctx context.Context, migrate bool) (*config.Config, *repository.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := c.logger
	if logger == nil {
		if logger, err = observability.NewLogger(cfg.Logger, cfg.App); err != nil {
			return nil, nil, err
		}
	}
	store, err := repository.Open(ctx, cfg, migrate, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}
