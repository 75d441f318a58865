package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"productapi/internal/app"
	"productapi/internal/config"
	"productapi/internal/logging"
	"productapi/internal/models"
	"productapi/internal/services"
	"productapi/pkg/rabbitmq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(viper.New()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "productapi",
		Short:         "Product catalogue HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the product HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v, configFile)
		},
	}
	serveCmd.Flags().String("port", "", "listen address, overrides APP_PORT")
	_ = v.BindPFlag("app_port", serveCmd.Flags().Lookup("port"))

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Log product events from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), v, configFile)
		},
	}

	rootCmd.AddCommand(serveCmd, watchCmd)
	return rootCmd
}

func setup(v *viper.Viper, configFile string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(app.ServiceName, cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runServe(ctx context.Context, v *viper.Viper, configFile string) error {
	cfg, log, err := setup(v, configFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	repo, err := app.NewRepository(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}

	// A nil *rabbitmq.Client must not reach the service as a non-nil interface.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue}, log)
		if err != nil {
			return err
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Info("RABBITMQ_URL not set, product events disabled")
	}

	fiberApp := app.New(app.Deps{
		Config:    cfg,
		Log:       log,
		Repo:      repo,
		Publisher: publisher,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", cfg.Port),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("seeded", cfg.StoreSeed),
		)
		errCh <- fiberApp.Listen(cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	if err := fiberApp.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		return err
	}
	log.Info("server gracefully stopped")
	return nil
}

func runWatch(ctx context.Context, v *viper.Viper, configFile string) error {
	cfg, log, err := setup(v, configFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL must be set to watch product events")
	}

	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue}, log)
	if err != nil {
		return err
	}
	defer mqClient.Close()

	if err := mqClient.Consume(eventLogger(log)); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("stopped watching product events")
	return nil
}

// eventLogger returns a delivery handler that logs each product event. Bodies that do
// not decode are reported as errors so the message is rejected.
func eventLogger(log *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event models.ProductEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("decode product event: %w", err)
		}
		if event.Type == "" {
			event.Type = msg.Type
		}

		log.Info("product event",
			zap.String("type", event.Type),
			zap.Int("product_id", event.ProductID),
			zap.Time("occurred_at", event.OccurredAt),
			zap.Uint64("tag", msg.DeliveryTag),
		)
		return nil
	}
}
