package main

import (
	"github.com/smallbiznis/tigerlife/internal/audit"
	"github.com/smallbiznis/tigerlife/internal/auth"
	"github.com/smallbiznis/tigerlife/internal/authorization"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"github.com/smallbiznis/tigerlife/internal/config"
	"github.com/smallbiznis/tigerlife/internal/gateway"
	"github.com/smallbiznis/tigerlife/internal/membership"
	"github.com/smallbiznis/tigerlife/internal/migration"
	"github.com/smallbiznis/tigerlife/internal/notification"
	"github.com/smallbiznis/tigerlife/internal/observability"
	"github.com/smallbiznis/tigerlife/internal/organization"
	"github.com/smallbiznis/tigerlife/internal/ratelimit"
	"github.com/smallbiznis/tigerlife/internal/scheduler"
	"github.com/smallbiznis/tigerlife/internal/server"
	"github.com/smallbiznis/tigerlife/pkg/db"
	"github.com/smallbiznis/tigerlife/pkg/kv"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Pending schema migrations are applied before the listener starts. The
housekeeping scheduler runs in the same process unless SCHEDULER_ENABLED=false.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			// Core Infrastructure
			config.Module,
			observability.Module,
			fx.Provide(RegisterSnowflake),
			db.Module,
			kv.Module,
			clock.Module,
			migration.Module,

			// Functional Domains
			auth.Module,
			audit.Module,
			notification.Module,
			organization.Module,
			membership.Module,
			ratelimit.Module,
			authorization.Module,
			gateway.Module,
			scheduler.Module,

			server.Module,
		)
		if err := app.Err(); err != nil {
			return err
		}
		app.Run()
		return nil
	},
}
