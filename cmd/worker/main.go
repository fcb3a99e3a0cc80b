package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"github.com/golfdiscount/wsi-automation-api/internal/application"
	"github.com/golfdiscount/wsi-automation-api/internal/infrastructure/dufferscorner"
	"github.com/golfdiscount/wsi-automation-api/internal/infrastructure/email"
	"github.com/golfdiscount/wsi-automation-api/internal/infrastructure/shipstation"
	sftpTransport "github.com/golfdiscount/wsi-automation-api/internal/infrastructure/sftp"
	"github.com/golfdiscount/wsi-automation-api/internal/reconcile"
	"github.com/golfdiscount/wsi-automation-api/pkg/kafka"
	"github.com/golfdiscount/wsi-automation-api/pkg/logging"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

const serviceName = "wsi-automation-worker"

// Schedules use six cron fields, seconds first. Reconciliation runs
// nightly after the warehouse posts its confirmation files; the SKU
// list refresh keeps new items ahead of their first pick ticket.
const (
	reconciliationSchedule = "0 0 20 * * *"
	skuListSchedule        = "0 0 */3 * * *"
)

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting wsi-automation-worker")

	config := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	producer := kafka.NewProducer(config.Kafka)
	defer producer.Close()

	config.SFTP.Metrics = m
	config.Dufferscorner.Metrics = m
	config.ShipStation.Metrics = m

	transport := sftpTransport.NewClient(config.SFTP)
	feeds := dufferscorner.NewClient(config.Dufferscorner)
	orders := shipstation.NewClient(config.ShipStation, logger.Logger)
	notifier := email.NewNotifier(producer)

	notifications := application.DefaultNotificationConfig()
	if path := getEnv("NOTIFICATION_CONFIG", ""); path != "" {
		loaded, err := application.LoadNotificationConfig(path)
		if err != nil {
			logger.WithError(err).Error("Failed to load notification config")
			os.Exit(1)
		}
		notifications = loaded
	}

	reconciliation := application.NewReconciliationService(
		transport,
		reconcile.NewEngine(orders, logger),
		notifier,
		notifications,
		logger,
		m,
	)
	skuList := application.NewSKUListService(feeds, transport, logger)

	scheduler := cron.New()
	mustSchedule(scheduler, reconciliationSchedule, logger, func() {
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()

		result, err := reconciliation.RunDaily(runCtx)
		if err != nil {
			logger.WithError(err).Error("Reconciliation run failed")
			return
		}
		logger.WithFields(map[string]any{
			"files":         result.FilesProcessed,
			"confirmations": result.Confirmations,
			"failedOrders":  len(result.FailedOrders),
		}).Info("Reconciliation run finished")
	})
	mustSchedule(scheduler, skuListSchedule, logger, func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()

		if err := skuList.GenerateMasterSKUList(runCtx); err != nil {
			logger.WithError(err).Error("Master SKU list refresh failed")
		}
	})
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("Scheduler started",
		"reconciliation", reconciliationSchedule,
		"skuList", skuListSchedule,
	)

	// Audit trail for outbound batches built by the API
	consumer := kafka.NewConsumer(config.Kafka, logger.Logger)
	consumer.Subscribe(kafka.Topics.PickTicketsOutbound, func(ctx context.Context, key, value []byte) error {
		var event struct {
			File        string   `json:"file"`
			PickTickets []string `json:"pickTickets"`
		}
		if err := json.Unmarshal(value, &event); err != nil {
			logger.WithError(err).Warn("Discarding malformed outbound batch event")
			return nil
		}
		logger.WithFields(map[string]any{
			"file":    event.File,
			"tickets": len(event.PickTickets),
		}).Info("Outbound batch recorded")
		return nil
	})
	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("Consumer stopped")
		}
	}()
	defer consumer.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")
	cancel()
	logger.Info("Worker stopped")
}

func mustSchedule(scheduler *cron.Cron, spec string, logger *logging.Logger, job func()) {
	if err := scheduler.AddFunc(spec, job); err != nil {
		logger.WithError(err).Error("Failed to register schedule", "spec", spec)
		os.Exit(1)
	}
}

// Config holds worker configuration
type Config struct {
	Kafka         *kafka.Config
	SFTP          sftpTransport.Config
	Dufferscorner dufferscorner.Config
	ShipStation   shipstation.Config
}

func loadConfig() *Config {
	return &Config{
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
			MinBytes:      1,
			MaxBytes:      10e6,
			MaxWait:       500 * time.Millisecond,
			CommitTimeout: 5 * time.Second,
		},
		SFTP: sftpTransport.Config{
			Host:     getEnv("WSI_SFTP_HOST", ""),
			Port:     getEnvInt("WSI_SFTP_PORT", 22),
			Username: getEnv("WSI_SFTP_USER", ""),
			Password: getEnv("WSI_SFTP_PASSWORD", ""),
		},
		Dufferscorner: dufferscorner.Config{
			BaseURL: getEnv("DUFFERSCORNER_URL", "https://www.dufferscorner.com"),
		},
		ShipStation: shipstation.Config{
			BaseURL: getEnv("SHIPSTATION_URL", ""),
			APIKey:  getEnv("SHIPSTATION_API_KEY", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
