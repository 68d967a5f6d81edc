package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stackspendlabs/stackspend/internal/activity"
	"github.com/stackspendlabs/stackspend/internal/client"
	"github.com/stackspendlabs/stackspend/internal/clock"
	"github.com/stackspendlabs/stackspend/internal/config"
	"github.com/stackspendlabs/stackspend/internal/lifetimedeal"
	"github.com/stackspendlabs/stackspend/internal/migration"
	"github.com/stackspendlabs/stackspend/internal/observability"
	"github.com/stackspendlabs/stackspend/internal/project"
	redismodule "github.com/stackspendlabs/stackspend/internal/redis"
	"github.com/stackspendlabs/stackspend/internal/report"
	"github.com/stackspendlabs/stackspend/internal/scheduler"
	"github.com/stackspendlabs/stackspend/internal/seed"
	"github.com/stackspendlabs/stackspend/internal/server"
	"github.com/stackspendlabs/stackspend/internal/subscription"
	"github.com/stackspendlabs/stackspend/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "stackspend",
		Short:   "StackSpend subscription tracking CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run background scheduler workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redismodule.Module,
		fx.Invoke(seedDefaultOrg),

		client.Module,
		project.Module,
		subscription.Module,
		lifetimedeal.Module,
		activity.Module,
		report.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server, reg *prometheus.Registry) { s.RegisterAPIRoutes(reg) }),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redismodule.Module,

		subscription.Module,
		lifetimedeal.Module,
		activity.Module,
		report.Module,
		client.Module,
		project.Module,

		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redismodule.Module,
		fx.Invoke(seedDefaultOrg),

		client.Module,
		project.Module,
		subscription.Module,
		lifetimedeal.Module,
		activity.Module,
		report.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server, reg *prometheus.Registry) { s.RegisterAPIRoutes(reg) }),
		fx.Invoke(server.RunHTTP),

		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func seedDefaultOrg(conn *gorm.DB, node *snowflake.Node) error {
	return seed.EnsureMainOrg(conn, node)
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
