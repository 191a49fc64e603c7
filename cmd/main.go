package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pizza-status/internal/adapter/amqp"
	"pizza-status/internal/adapter/cronfile"
	"pizza-status/internal/adapter/logger"
	"pizza-status/internal/adapter/postgres"
	"pizza-status/internal/adapter/rabbitmq"
	"pizza-status/internal/app/advance"
	"pizza-status/internal/app/scheduler"
	"pizza-status/internal/app/tracking"
	"pizza-status/internal/auth"
	"pizza-status/internal/config"
	"pizza-status/internal/interfaces"

	httpAdapter "pizza-status/internal/adapter/http"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pizza-status",
		Short: "Order-status advancement service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the yaml config file")

	rootCmd.AddCommand(
		serveCommand(),
		advanceCommand(),
		cronCommand(),
		notifyCommand(),
		tokenCommand(),
		migrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			lgr := logger.New("api-server")

			db, err := postgres.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			}
			defer db.Close()

			lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
				"host": cfg.Database.Host,
				"db":   cfg.Database.Database,
			})

			mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer mqConn.Close()

			lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
				"host": cfg.RabbitMQ.Host,
			})

			orderRepo := postgres.NewOrderRepository(db)
			userRepo := postgres.NewUserRepository(db)
			publisher := rabbitmq.NewPublisher(mqConn)

			advanceService := advance.NewService(orderRepo, userRepo, publisher, lgr, "api-server")
			trackingService := tracking.NewService(orderRepo, lgr)

			advanceHandler := httpAdapter.NewAdvanceHandler(advanceService, lgr)
			statusHandler := httpAdapter.NewStatusHandler(trackingService, lgr)

			authMW := httpAdapter.AuthMiddleware(cfg.Auth.JWTSecret, lgr)

			mux := http.NewServeMux()
			mux.Handle("/api/order-advance", authMW(http.HandlerFunc(advanceHandler.AdvanceOrders)))
			mux.HandleFunc("/api/order-status", statusHandler.OrderStatus)

			handler := httpAdapter.LoggingMiddleware(lgr)(mux)
			handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler:      handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			lgr.Info("service_started", fmt.Sprintf("API server started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
				"port": cfg.HTTP.Port,
			})

			go func() {
				sigint := make(chan os.Signal, 1)
				signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
				<-sigint

				lgr.Info("shutdown_initiated", "Shutting down API server", "shutdown", nil)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
				}
			}()

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func advanceCommand() *cobra.Command {
	var (
		email   string
		orderID string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Advance order statuses once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			lgr := logger.New("advance-cli")

			db, err := postgres.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			}
			defer db.Close()

			orderRepo := postgres.NewOrderRepository(db)
			userRepo := postgres.NewUserRepository(db)
			service := advance.NewService(orderRepo, userRepo, nil, lgr, "advance-cli")

			sel := interfaces.Selection{UserEmail: email, AllPossible: all}
			if orderID != "" {
				id, err := uuid.Parse(orderID)
				if err != nil {
					return fmt.Errorf("invalid --order-id: %w", err)
				}
				sel.OrderID = &id
			}

			orderIDs, err := service.SelectOrders(ctx, sel)
			if err != nil {
				return fmt.Errorf("error advancing orders: %w", err)
			}
			if len(orderIDs) == 0 {
				fmt.Println("No orders to advance.")
				return nil
			}

			for _, outcome := range service.Advance(ctx, orderIDs) {
				fmt.Printf("%s: %s\n", outcome.OrderID, outcome.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Advance orders for the given email")
	cmd.Flags().StringVar(&orderID, "order-id", "", "Advance a specific order by ID")
	cmd.Flags().BoolVar(&all, "all", false, "Advance all possible orders")
	return cmd
}

func cronCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage the scheduled advancement job",
	}
	cmd.AddCommand(cronStartCommand(), cronStopCommand())
	return cmd
}

func cronStartCommand() *cobra.Command {
	var (
		minuteFrequency int
		maxDelayMinutes int
		email           string
		orderID         string
		all             bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduled advancement job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if minuteFrequency <= 0 || maxDelayMinutes <= 0 {
				return fmt.Errorf("invalid minute frequency or max delay minutes")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			lgr := logger.New("advance-cron")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := postgres.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			}
			defer db.Close()

			orderRepo := postgres.NewOrderRepository(db)
			userRepo := postgres.NewUserRepository(db)
			advanceService := advance.NewService(orderRepo, userRepo, nil, lgr, "advance-cron")

			params := scheduler.Params{
				MinuteFrequency: minuteFrequency,
				MaxDelayMinutes: maxDelayMinutes,
				UserEmail:       email,
				AllPossible:     all,
			}
			if orderID != "" {
				id, err := uuid.Parse(orderID)
				if err != nil {
					return fmt.Errorf("invalid --order-id: %w", err)
				}
				params.OrderID = &id
			}

			registry := cronfile.New(cfg.Cron.RegistryPath)
			driver := scheduler.NewService(advanceService, orderRepo, registry, lgr, params)

			if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minuteFrequency, "minute-frequency", 1, "Frequency in minutes to run the job")
	cmd.Flags().IntVar(&maxDelayMinutes, "max-delay-minutes", 10, "Max random delay before advancing an order")
	cmd.Flags().StringVar(&email, "email", "", "Advance orders for the given email")
	cmd.Flags().StringVar(&orderID, "order-id", "", "Advance a specific order by ID")
	cmd.Flags().BoolVar(&all, "all", false, "Advance all possible orders")
	return cmd
}

func cronStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop [cronKey]",
		Short: "Stop one scheduled job, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			registry := cronfile.New(cfg.Cron.RegistryPath)

			if len(args) == 1 {
				if err := registry.MarkStop(args[0]); err != nil {
					return err
				}
				fmt.Printf("%s marked to stop.\n", args[0])
				return nil
			}

			keys, err := registry.Keys()
			if err != nil {
				return err
			}
			if err := registry.MarkStopAll(); err != nil {
				return err
			}
			fmt.Printf("All cron jobs marked to stop (%d).\n", len(keys))
			return nil
		},
	}
}

func notifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Subscribe to status update notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			lgr := logger.New("notification-subscriber")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer mqConn.Close()

			consumer := rabbitmq.NewConsumer(mqConn)
			handler := amqp.NewNotificationHandler(lgr)

			lgr.Info("service_started", "Notification subscriber started", "startup", nil)

			if err := consumer.ConsumeNotifications(ctx, handler.HandleNotification); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func tokenCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()

			db, err := postgres.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			}
			defer db.Close()

			userID, err := postgres.NewUserRepository(db).LookupUserByEmail(ctx, email)
			if err != nil {
				return err
			}

			token, err := auth.GenerateToken(cfg.Auth.JWTSecret, userID, email, 2*time.Hour)
			if err != nil {
				return err
			}

			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user to issue a token for")
	return cmd
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dsn := fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=disable",
				cfg.Database.User, cfg.Database.Password,
				cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

			m, err := migrate.New(fmt.Sprintf("file://%s", cfg.Database.MigrationsDir), dsn)
			if err != nil {
				return err
			}

			err = m.Up()
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Println("No change in migration")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println("Migrated up")
			return nil
		},
	}
}
