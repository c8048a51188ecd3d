package main

import (
	"context"
	"time"

	"github.com/smallbiznis/tigerlife/internal/config"
	"github.com/smallbiznis/tigerlife/internal/migration"
	"github.com/smallbiznis/tigerlife/internal/observability"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		var log *zap.Logger
		app := fx.New(
			config.Module,
			observability.Module,
			db.Module,
			migration.Module,
			fx.Populate(&log),
		)
		if err := app.Err(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := app.Start(ctx); err != nil {
			return err
		}
		log.Info("migrations applied")
		return app.Stop(ctx)
	},
}
