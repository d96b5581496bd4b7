package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/core/events"
	"github.com/my-other-app/moa-backend/internal/gateway"
	"github.com/my-other-app/moa-backend/internal/notification"
	"github.com/my-other-app/moa-backend/internal/payment"
	paymentpostgres "github.com/my-other-app/moa-backend/internal/payment/postgres"
	"github.com/my-other-app/moa-backend/internal/registration"
	registrationpostgres "github.com/my-other-app/moa-backend/internal/registration/postgres"
	"github.com/my-other-app/moa-backend/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers like payment reconciliation.`,
}

var reconcileWorkerCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Start the payment reconciliation worker",
	Long:  `Periodically re-verifies orders stuck in attempted against the gateway, recovering webhook deliveries that never arrived.`,
	Run: func(cmd *cobra.Command, args []string) {
		startReconcileWorker()
	},
}

var (
	reconcileInterval  time.Duration
	reconcileBatchSize int
	reconcileMinAge    time.Duration
)

func startReconcileWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Logging.Level, config.Logging.Format)
	log := logger.LoggerWrapper()

	sqlDB, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orm: %v\n", err)
		os.Exit(1)
	}

	interval := config.Reconciliation.Interval
	if reconcileInterval > 0 {
		interval = reconcileInterval
	}
	batchSize := config.Reconciliation.BatchSize
	if reconcileBatchSize > 0 {
		batchSize = reconcileBatchSize
	}
	minAge := config.Reconciliation.MinAge
	if reconcileMinAge > 0 {
		minAge = reconcileMinAge
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:   config.Razorpay.BaseURL,
		KeyID:     config.Razorpay.KeyID,
		KeySecret: config.Razorpay.KeySecret,
		Timeout:   config.Razorpay.Timeout,
	}, log)

	eventBus := events.NewEventBus(log)

	orderRepo := paymentpostgres.NewOrderRepository(gormDB)
	logRepo := paymentpostgres.NewLogRepository(gormDB)
	webhookRepo := paymentpostgres.NewWebhookRepository(gormDB)
	registrationRepo := registrationpostgres.NewRepository(gormDB)

	mailer := notification.NewMailer(config.SMTP, log)
	notification.NewEventHandler(mailer, registrationRepo, log).Subscribe(eventBus)

	registrationService := registration.NewService(registrationRepo, logRepo, mailer, log)

	registry := payment.NewRegistry(log)
	registry.Register(registration.Source, registrationService)

	service := payment.NewService(
		orderRepo, logRepo, webhookRepo,
		gatewayClient, registry, eventBus,
		config.Razorpay.Currency, config.Razorpay.WebhookSecret,
		log,
	)

	log.Info("reconciliation worker started",
		"interval", interval.String(),
		"batch_size", batchSize,
		"min_age", minAge.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweepCtx, sweepCancel := internal.WithTimeout(ctx, interval)
			examined, err := service.ReconcileStuckOrders(sweepCtx, minAge, batchSize)
			sweepCancel()
			if err != nil {
				log.Error("reconciliation sweep failed", "error", err)
				continue
			}
			log.Info("reconciliation sweep complete", "orders_examined", examined)
		case sig := <-sigChan:
			log.Info("received signal, shutting down reconciliation worker", "signal", sig)
			cancel()
			if err := sqlDB.Close(); err != nil {
				log.Error("database close error", "error", err)
			}
			return
		}
	}
}

func init() {
	reconcileWorkerCmd.Flags().DurationVar(&reconcileInterval, "interval", 0, "Sweep interval (overrides config)")
	reconcileWorkerCmd.Flags().IntVar(&reconcileBatchSize, "batch-size", 0, "Maximum orders per sweep (overrides config)")
	reconcileWorkerCmd.Flags().DurationVar(&reconcileMinAge, "min-age", 0, "Minimum age of an attempted order before it is swept (overrides config)")

	workerCmd.AddCommand(reconcileWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
