package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"storefront/internal/app"
	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/pkg/config"
	"storefront/pkg/logger"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var errViolations = errors.New("audit found violations")

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}
	if err := newCommand(os.Stdout).Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "storectl:", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "storectl",
		Usage:  "Maintenance commands for the storefront collection store",
		Writer: out,
		Commands: []*cli.Command{
			recoverCommand(),
			dumpCommand(),
			auditCommand(),
			seedUserCommand(),
		},
	}
}

// setup loads configuration and returns a context carrying the logger
func setup(ctx context.Context) (context.Context, *config.Config, error) {
	cfg, err := config.Load("storectl")
	if err != nil {
		return nil, nil, err
	}
	if err := logger.InitLogger(cfg); err != nil {
		return nil, nil, err
	}
	return logger.WithContext(ctx, logger.GetLogger()), cfg, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	ctx, cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func recoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "recover",
		Usage: "Replay journals left by an interrupted commit and remove temp files",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			if cfg.Store.Backend != config.BackendFile {
				fmt.Fprintf(c.Root().Writer, "backend %s commits in database transactions, nothing to recover\n", cfg.Store.Backend)
				return nil
			}
			backend, err := store.OpenFileBackend(cfg.Store.DataDir)
			if err != nil {
				return err
			}
			report, err := backend.Recover()
			if err != nil {
				return err
			}
			logger.FromContext(ctx).Info("Recovery finished",
				zap.Int("replayed", len(report.Replayed)),
				zap.Int("discarded", len(report.Discarded)),
				zap.Int("temp_files", report.TempFiles))
			fmt.Fprintf(c.Root().Writer, "replayed %d journal(s), discarded %d, removed %d temp file(s)\n",
				len(report.Replayed), len(report.Discarded), report.TempFiles)
			return nil
		},
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Print the stored JSON of one collection",
		ArgsUsage: "<collection>",
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if !slices.Contains(service.Collections, name) {
				return fmt.Errorf("unknown collection %q, want one of %v", name, service.Collections)
			}
			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				return a.Store.View(ctx, []string{name}, func(tx *store.Tx) error {
					body, err := tx.Raw(name)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.Root().Writer, string(body))
					return err
				})
			})
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Check every stored reference; exits non-zero on violations",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				violations, err := a.Service.Audit(ctx)
				if err != nil {
					return err
				}
				for _, v := range violations {
					fmt.Fprintln(c.Root().Writer, v.String())
				}
				if len(violations) > 0 {
					return fmt.Errorf("%w: %d", errViolations, len(violations))
				}
				fmt.Fprintln(c.Root().Writer, "ok")
				return nil
			})
		},
	}
}

func seedUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed-user",
		Usage: "Create a user account, including admins",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "type", Value: model.UserTypeAdmin, Usage: "customer, seller or admin"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			userType := c.String("type")
			switch userType {
			case model.UserTypeCustomer, model.UserTypeSeller, model.UserTypeAdmin:
			default:
				return fmt.Errorf("unknown user type %q", userType)
			}
			return withApp(ctx, func(ctx context.Context, a *app.App) error {
				user, err := a.Service.RegisterUser(ctx, service.UserInput{
					FullName:     c.String("name"),
					EmailAddress: c.String("email"),
					Password:     c.String("password"),
					UserType:     userType,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(c.Root().Writer, "created %s user %s\n", user.UserType, user.UserID)
				return nil
			})
		},
	}
}
