package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"envmonitor/backend/libs/logging"
	app "envmonitor/backend/services/monitoring-service/internal/app"
	"envmonitor/backend/services/monitoring-service/internal/config"
	"envmonitor/backend/services/monitoring-service/internal/db"
	"envmonitor/backend/services/monitoring-service/internal/models"
	"envmonitor/backend/services/monitoring-service/internal/service"
)

// env is shared by every sub-command once the root pre-run has loaded it.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "monitoring-service",
		Short:         "Environmental monitoring backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger("monitoring-service")
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	serve := serveCommand(e)
	root.RunE = serve.RunE
	root.AddCommand(serve, migrateCommand(e), seedCommand(e), userCommand(e))
	return root
}

func serveCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and live channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := app.New(ctx, e.cfg, e.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer application.Close()

			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("application stopped with error: %w", err)
			}
			return nil
		},
	}
}

func migrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(e, func(sqlDB *sql.DB) error {
				return app.Migrate(cmd.Context(), sqlDB, e.logger)
			})
		},
	}
}

func seedCommand(e *env) *cobra.Command {
	var opts app.SeedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, stations, sensors and reading history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(e, func(sqlDB *sql.DB) error {
				report, err := app.NewDatabaseSeeder(sqlDB, e.logger).Run(cmd.Context(), opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d users, %d stations, %d sensors, %d readings\n",
					report.Users, report.Stations, report.Sensors, report.Readings)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Password, "password", "admin123", "password for the demo accounts")
	cmd.Flags().IntVar(&opts.History, "history", 49, "half-hourly readings generated per sensor")
	return cmd
}

func userCommand(e *env) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}

	var in service.NewUser
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = models.Role(role)
			return withDB(e, func(sqlDB *sql.DB) error {
				created, err := app.NewAccounts(sqlDB, e.logger).CreateUser(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) with role %s\n", created.Email, created.ID, created.Role)
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "account email")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Password, "password", "", "initial password")
	create.Flags().StringVar(&role, "role", string(models.RoleResearcher), "ADMIN, MANAGER, RESEARCHER or TECHNICIAN")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	user.AddCommand(create)
	return user
}

func withDB(e *env, fn func(*sql.DB) error) error {
	sqlDB, err := db.NewPostgres(e.cfg.Database.DSN, e.cfg.Database.MaxOpenConns)
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			e.logger.Warn("failed to close db", zap.Error(err))
		}
	}()

	start := time.Now()
	err = fn(sqlDB)
	e.logger.Debug("command finished", zap.Duration("took", time.Since(start)), zap.Error(err))
	return err
}
