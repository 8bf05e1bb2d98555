package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"menu-catalog/internal/app"
	"menu-catalog/internal/core/config"
	"menu-catalog/internal/repo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Menu catalog maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")

	// 每个子命令按需初始化，避免 --help 也去连库
	withApp := func(fn func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg.Log.File.Enable = false
			log, cleanup := app.NewLogger(cfg)
			defer cleanup()

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd.Context(), a, args)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog tables",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app.App, _ []string) error {
			if err := repo.Migrate(ctx, a.DB); err != nil {
				return err
			}
			a.Log.Info("migrate done")
			return nil
		}),
	})

	user := &cobra.Command{Use: "user", Short: "Manage accounts"}
	var password string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app.App, args []string) error {
			u, err := a.Auth.CreateUser(ctx, args[0], password)
			if err != nil {
				return err
			}
			a.Log.Info("user created", zap.String("id", u.ID), zap.String("username", u.Username))
			return nil
		}),
	}
	create.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = create.MarkFlagRequired("password")
	user.AddCommand(create)
	root.AddCommand(user)

	root.AddCommand(&cobra.Command{
		Use:   "menu",
		Short: "Print the menu as JSON",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app.App, _ []string) error {
			menu, err := a.Catalog.GetMenu(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(menu); err != nil {
				return fmt.Errorf("encode menu: %w", err)
			}
			return nil
		}),
	})
	return root
}
