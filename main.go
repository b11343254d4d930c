// Package main provides the main entry point for the Gashadokuro number store
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Gashadokuro/app/handlers"
	"github.com/amirphl/Gashadokuro/app/middleware"
	"github.com/amirphl/Gashadokuro/app/router"
	"github.com/amirphl/Gashadokuro/app/scheduler"
	"github.com/amirphl/Gashadokuro/app/services"
	businessflow "github.com/amirphl/Gashadokuro/business_flow"
	"github.com/amirphl/Gashadokuro/config"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Gashadokuro application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeCheckoutGateway selects the checkout gateway backend from configuration
func initializeCheckoutGateway(cfg config.GatewayConfig) services.CheckoutGateway {
	if cfg.UseMock {
		log.Println("Using mock checkout gateway")
		return services.NewMockCheckoutGateway()
	}
	return services.NewHTTPCheckoutGateway(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
}

// initializeTelephonyProvider selects the carrier backend from configuration
func initializeTelephonyProvider(cfg config.TelephonyConfig) services.TelephonyProvider {
	if cfg.UseMock {
		log.Println("Using mock telephony provider")
		return services.NewMockTelephonyProvider()
	}
	return services.NewHTTPTelephonyProvider(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, fmt.Errorf("redis cache is required for carts and checkout sessions")
	}

	cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
	stopFuncs = append(stopFuncs, cancel)

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	numberRepo := repository.NewPurchasedNumberRepository(db)
	taskRepo := repository.NewProvisioningTaskRepository(db)
	smsConfigRepo := repository.NewSmsConfigurationRepository(db)

	// Initialize services
	notificationService := services.NewNotificationService(
		services.NewMockSMSProvider(),
		services.NewMockEmailProvider(),
	)
	gateway := initializeCheckoutGateway(cfg.Gateway)
	telephony := initializeTelephonyProvider(cfg.Telephony)
	authorizer := services.NewConfigAuthorizer(cfg.Admin.Emails)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Log that services are initialized
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	loginFlow := businessflow.NewLoginFlow(customerRepo, tokenService)

	cartFlow := businessflow.NewCartFlow(rc, &cfg.Cache)

	checkoutFlow := businessflow.NewCheckoutFlow(
		customerRepo,
		orderRepo,
		numberRepo,
		taskRepo,
		auditRepo,
		cartFlow,
		gateway,
		rc,
		&cfg.Cache,
		db,
	)

	provisioningFlow := businessflow.NewProvisioningFlow(
		numberRepo,
		taskRepo,
		customerRepo,
		auditRepo,
		telephony,
		notificationService,
		authorizer,
		db,
	)

	smsConfigFlow := businessflow.NewSmsConfigFlow(
		numberRepo,
		smsConfigRepo,
		auditRepo,
		telephony,
	)

	usageFlow := businessflow.NewUsageFlow(numberRepo, telephony)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(loginFlow)
	cartHandler := handlers.NewCartHandler(cartFlow)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutFlow)
	numberHandler := handlers.NewNumberHandler(provisioningFlow, customerRepo)
	smsHandler := handlers.NewSmsHandler(smsConfigFlow)
	usageHandler := handlers.NewUsageHandler(usageFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		authHandler,
		cartHandler,
		checkoutHandler,
		numberHandler,
		smsHandler,
		usageHandler,
		authMiddleware,
	)

	// Start the provisioning worker
	worker := scheduler.NewProvisioningWorker(taskRepo, provisioningFlow, cfg.Scheduler)
	stopWorker := worker.Start(context.Background())
	stopFuncs = append(stopFuncs, stopWorker)

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
