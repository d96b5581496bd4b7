package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/auth"
	authpostgres "github.com/my-other-app/moa-backend/internal/auth/postgres"
	"github.com/my-other-app/moa-backend/internal/core/events"
	"github.com/my-other-app/moa-backend/internal/gateway"
	"github.com/my-other-app/moa-backend/internal/notification"
	"github.com/my-other-app/moa-backend/internal/payment"
	paymentpostgres "github.com/my-other-app/moa-backend/internal/payment/postgres"
	"github.com/my-other-app/moa-backend/internal/registration"
	registrationpostgres "github.com/my-other-app/moa-backend/internal/registration/postgres"
	"github.com/my-other-app/moa-backend/internal/transport/rest"
	"github.com/my-other-app/moa-backend/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Logging.Level, config.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	privateKey, err := config.Security.GetPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load jwt private key: %w", err)
	}
	publicKey, err := config.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load jwt public key: %w", err)
	}

	tokens := auth.NewTokenService(privateKey, publicKey, config.Security.AccessTokenDuration)
	authService := auth.NewService(authpostgres.NewUserRepository(gormDB), tokens, log)
	authHandler := auth.NewHandler(authService)

	eventBus := events.NewEventBus(log)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:   config.Razorpay.BaseURL,
		KeyID:     config.Razorpay.KeyID,
		KeySecret: config.Razorpay.KeySecret,
		Timeout:   config.Razorpay.Timeout,
	}, log)

	orderRepo := paymentpostgres.NewOrderRepository(gormDB)
	logRepo := paymentpostgres.NewLogRepository(gormDB)
	webhookRepo := paymentpostgres.NewWebhookRepository(gormDB)
	registrationRepo := registrationpostgres.NewRepository(gormDB)

	mailer := notification.NewMailer(config.SMTP, log)
	notification.NewEventHandler(mailer, registrationRepo, log).Subscribe(eventBus)

	registrationService := registration.NewService(registrationRepo, logRepo, mailer, log)

	registry := payment.NewRegistry(log)
	registry.Register(registration.Source, registrationService)

	paymentService := payment.NewService(
		orderRepo, logRepo, webhookRepo,
		gatewayClient, registry, eventBus,
		config.Razorpay.Currency, config.Razorpay.WebhookSecret,
		log,
	)

	paymentHandler := payment.NewHandler(paymentService)
	webhookHandler := payment.NewWebhookHandler(paymentService)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, tokens, authHandler, paymentHandler, webhookHandler, log)

	return &Dependencies{
		Config: config,
		Logger: log,
		DB:     db,
		Router: router,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
