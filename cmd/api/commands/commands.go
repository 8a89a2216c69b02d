package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/internhub/core/internal/adapters/cache"
	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/infrastructure/config"
	"github.com/internhub/core/internal/infrastructure/database"
	"github.com/internhub/core/internal/infrastructure/logger"
	"github.com/internhub/core/internal/infrastructure/server"
	"github.com/internhub/core/internal/ports"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// runtimeEnv bundles what every command needs
type runtimeEnv struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
}

func setup() (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &runtimeEnv{cfg: cfg, logger: appLogger, db: db}, nil
}

func (r *runtimeEnv) close() {
	if err := r.db.Close(); err != nil {
		r.logger.Warnw("Failed to close database", "error", err)
	}
	_ = r.logger.Close()
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the InternHub API server",
		Long:  "Start the HTTP API together with the background jobs (inactivity sweep, status reconciliation)",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			if migrateFirst {
				if err := env.db.MigrateUp(); err != nil {
					return err
				}
			}

			return runServer(cmd.Context(), env)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, env *runtimeEnv) error {
	var rdb *redis.Client
	if env.cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, env.cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
	}

	app := server.NewApp(env.cfg, env.db, env.logger)
	srv, err := server.New(env.cfg, env.db, app, rdb, env.logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	env.logger.Infow("Starting InternHub API server",
		"port", env.cfg.Server.Port,
		"environment", env.cfg.App.Environment,
		"database", env.cfg.Database.Driver,
		"redis", env.cfg.Redis.Enabled,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf("%s:%d", env.cfg.Server.Host, env.cfg.Server.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		env.logger.Infow("Shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	env.logger.Infow("Server stopped")
	return nil
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	var upSteps, downSteps int

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "up", upSteps)
		},
	}
	upCmd.Flags().IntVar(&upSteps, "steps", 0, "Number of migrations to apply (0 = all)")

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "down", downSteps)
		},
	}
	downCmd.Flags().IntVar(&downSteps, "steps", 1, "Number of migrations to roll back (0 = all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			m, err := env.db.Migrator()
			if err != nil {
				return err
			}

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				cmd.Println("No migrations applied")
				return nil
			}
			if err != nil {
				return fmt.Errorf("read migration version: %w", err)
			}

			cmd.Printf("Current migration version: %d\n", version)
			cmd.Printf("Dirty: %t\n", dirty)
			return nil
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func runMigration(cmd *cobra.Command, direction string, steps int) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	m, err := env.db.Migrator()
	if err != nil {
		return err
	}

	switch {
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		cmd.Println("No migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", direction, err)
	}

	cmd.Printf("Migration %s completed successfully\n", direction)
	return nil
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long:  "Create users directly, e.g. the first admin account",
	}

	var req ports.CreateUserRequest
	var role, department string

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Role = entities.UserRole(role)
			if department != "" {
				req.Department = &department
			}

			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			app := server.NewApp(env.cfg, env.db, env.logger)
			user, err := app.Auth.CreateUser(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			cmd.Printf("User created successfully:\n")
			cmd.Printf("  ID: %s\n", user.ID)
			cmd.Printf("  Name: %s\n", user.Name)
			cmd.Printf("  Email: %s\n", user.Email)
			cmd.Printf("  Role: %s\n", user.Role)
			return nil
		},
	}

	createUserCmd.Flags().StringVar(&req.Name, "name", "", "Full name (required)")
	createUserCmd.Flags().StringVar(&req.Email, "email", "", "Email (required)")
	createUserCmd.Flags().StringVar(&req.Password, "password", "", "Password, at least 8 characters (required)")
	createUserCmd.Flags().StringVar(&role, "role", string(entities.UserRoleIntern), "Role (admin, intern)")
	createUserCmd.Flags().StringVar(&department, "department", "", "Department")
	for _, flag := range []string{"name", "email", "password"} {
		_ = createUserCmd.MarkFlagRequired(flag)
	}

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewJobsCommand runs background jobs once, outside the scheduler
func NewJobsCommand() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run background jobs once",
	}

	jobsCmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Mark interns without recent reviewed work inactive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, func(ctx context.Context, app *server.App) (int, error) {
				return app.Sweeper.Sweep(ctx, time.Now().UTC())
			})
		},
	})

	jobsCmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Repair task statuses that disagree with their feedback and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, func(ctx context.Context, app *server.App) (int, error) {
				return app.Reconciler.Reconcile(ctx)
			})
		},
	})

	return jobsCmd
}

func runJob(cmd *cobra.Command, run func(ctx context.Context, app *server.App) (int, error)) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	app := server.NewApp(env.cfg, env.db, env.logger)
	n, err := run(cmd.Context(), app)
	if err != nil {
		return err
	}

	cmd.Printf("%s: %d record(s) changed\n", cmd.Name(), n)
	return nil
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print InternHub version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("InternHub %s\n", Version)
		},
	}
}
