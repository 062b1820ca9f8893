package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/railzwaylabs/partnerops/internal/auth"
	"github.com/railzwaylabs/partnerops/internal/bootstrap"
	"github.com/railzwaylabs/partnerops/internal/clock"
	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/railzwaylabs/partnerops/internal/earnings"
	earningsdomain "github.com/railzwaylabs/partnerops/internal/earnings/domain"
	"github.com/railzwaylabs/partnerops/internal/mailinglist"
	"github.com/railzwaylabs/partnerops/internal/migration"
	"github.com/railzwaylabs/partnerops/internal/observability"
	"github.com/railzwaylabs/partnerops/internal/partner"
	"github.com/railzwaylabs/partnerops/internal/payment"
	"github.com/railzwaylabs/partnerops/internal/redis"
	"github.com/railzwaylabs/partnerops/internal/scheduler"
	"github.com/railzwaylabs/partnerops/internal/server"
	"github.com/railzwaylabs/partnerops/internal/tapfiliate"
	"github.com/railzwaylabs/partnerops/internal/tasks"
	"github.com/railzwaylabs/partnerops/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "partnerops",
		Short:   "Partner program backend",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newSyncEarningsCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run admin UI + API server",
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

func newSyncEarningsCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "sync-earnings",
		Short: "Reconcile partner earnings for one period (YYYY-MM)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncEarnings(cmd.Context(), period)
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "calendar month to reconcile, YYYY-MM")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start admin UI + API and scheduler",
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

// coreModules wires everything the earnings job and the partner workflow need.
func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		bootstrap.Module,
		tapfiliate.Module,
		mailinglist.Module,
		tasks.Module,
		partner.Module,
		earnings.Module,
		payment.Module,
	)
}

func runServe() {
	app := fx.New(
		coreModules(),
		redis.Module,
		auth.Module,
		server.Module,
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		coreModules(),
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		coreModules(),
		redis.Module,
		auth.Module,
		server.Module,
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runSyncEarnings(ctx context.Context, period string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	period = strings.TrimSpace(period)
	if _, err := earningsdomain.ParsePeriod(period); err != nil {
		return fmt.Errorf("--period %q: %w", period, err)
	}

	var svc earningsdomain.Service
	app := fx.New(
		coreModules(),
		fx.Populate(&svc),
	)

	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	summary, err := svc.SyncPeriod(ctx, period)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
