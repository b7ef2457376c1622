package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/rxintake/app"
	"github.com/Abraxas-365/rxintake/auth"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "rxintake",
		Short:         "Prescription photo intake service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before RX_ variables")

	load := func() (app.Config, error) {
		return app.LoadConfig(envFile, nil)
	}

	root.AddCommand(newServeCmd(load), newMigrateCmd(load), newTokenCmd(load))
	return root
}

func banner(cfg app.Config) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	title.Println("rxintake")
	dim.Printf("  port %d  storage %s  extraction %s  database %s  events %s\n",
		cfg.Server.Port, cfg.Storage.Driver, cfg.Extraction.Provider, cfg.Database.Driver, cfg.Events.Driver)
}

func newServeCmd(load func() (app.Config, error)) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			banner(cfg)
			return a.Run(ctx, grace)
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 15*time.Second, "time allowed for in-flight requests on shutdown")
	return cmd
}

func newMigrateCmd(load func() (app.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes in the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			if err := app.Migrate(ctx, cfg.Database); err != nil {
				return err
			}
			color.New(color.FgGreen).Printf("%s schema is up to date\n", cfg.Database.Driver)
			return nil
		},
	}
}

func newTokenCmd(load func() (app.Config, error)) *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			tokens := auth.NewTokenService(auth.TokenConfig{
				Secret:   []byte(cfg.Auth.Secret),
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
			})
			tok, err := tokens.GenerateToken(userID, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the sub claim")
	cmd.Flags().StringVar(&email, "email", "", "optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
