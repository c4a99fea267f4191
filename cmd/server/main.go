package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	periodapp "github.com/arledger/backend/internal/application/period"
	appreceivable "github.com/arledger/backend/internal/application/receivable"
	"github.com/arledger/backend/internal/application/reconcile"
	"github.com/arledger/backend/internal/domain/period"
	"github.com/arledger/backend/internal/infrastructure/audit"
	"github.com/arledger/backend/internal/infrastructure/cache"
	"github.com/arledger/backend/internal/infrastructure/config"
	"github.com/arledger/backend/internal/infrastructure/event"
	"github.com/arledger/backend/internal/infrastructure/logger"
	"github.com/arledger/backend/internal/infrastructure/persistence"
	"github.com/arledger/backend/internal/infrastructure/scheduler"
	"github.com/arledger/backend/internal/interfaces/http/handler"
	"github.com/arledger/backend/internal/interfaces/http/middleware"
	"github.com/arledger/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting AR ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	advanceRepo := persistence.NewGormAdvanceRepository(db.DB)
	receiptRepo := persistence.NewGormReceiptRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	lockRepo := persistence.NewGormLockRepository(db.DB)
	factsReader := persistence.NewGormBalanceFactsReader(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)
	auditSink := audit.NewGormSink(db.DB)

	// Customer balance cache invalidation, no-op without redis
	var invalidator appreceivable.CacheInvalidator = appreceivable.NoOpCacheInvalidator{}
	if cfg.Redis.Enabled {
		redisInvalidator, err := cache.NewRedisBalanceInvalidator(cfg.Redis,
			cache.WithInvalidatorChannel(cfg.Redis.InvalidationChannel),
			cache.WithInvalidatorLogger(log),
		)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			if err := redisInvalidator.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		invalidator = redisInvalidator
		log.Info("Redis balance invalidator enabled",
			zap.String("channel", cfg.Redis.InvalidationChannel))
	}

	// Initialize event bus; receipt lifecycle events drive the customer
	// cache invalidation post-commit
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(cache.NewCustomerCacheHandler(invalidator, log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize application services
	maintenance := period.NewMaintenanceState()
	guard := periodapp.NewGuard(lockRepo, log)
	lockService := periodapp.NewLockService(lockRepo, auditSink, log)
	debtService := appreceivable.NewDebtService(
		invoiceRepo, advanceRepo, receiptRepo, guard, maintenance, auditSink, invalidator, log)
	allocationService := appreceivable.NewAllocationService(
		receiptRepo, invoiceRepo, advanceRepo, txScope, guard, maintenance, eventBus, log)
	reconcileService := reconcile.NewService(customerRepo, factsReader, auditSink, log)

	// Maintenance job queue: balance reconciliation and audit retention
	tolerance, err := decimal.NewFromString(cfg.Reconcile.Tolerance)
	if err != nil {
		log.Fatal("Invalid reconcile tolerance", zap.String("tolerance", cfg.Reconcile.Tolerance), zap.Error(err))
	}
	executor := scheduler.NewMaintenanceExecutor(scheduler.MaintenanceExecutorConfig{
		ReconcileBatchSize:    cfg.Reconcile.BatchSize,
		ReconcileTolerance:    tolerance,
		ReconcileApplyChanges: cfg.Reconcile.ApplyChanges,
		AuditRetentionDays:    cfg.Audit.RetentionDays,
	}, reconcileService, auditSink, maintenance, log)

	jobScheduler := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Workers:    cfg.Scheduler.Workers,
		QueueSize:  cfg.Scheduler.QueueSize,
		JobTimeout: cfg.Scheduler.JobTimeout,
	}, executor, log)
	if err := jobScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start maintenance scheduler", zap.Error(err))
	}
	defer func() {
		if err := jobScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping maintenance scheduler", zap.Error(err))
		}
	}()

	if cfg.Reconcile.Enabled {
		reconcileTrigger := scheduler.NewIntervalTrigger(
			scheduler.JobTypeBalanceReconciliation, cfg.Reconcile.Interval, jobScheduler, log)
		if err := reconcileTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reconciliation trigger", zap.Error(err))
		}
		defer func() {
			if err := reconcileTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping reconciliation trigger", zap.Error(err))
			}
		}()
		log.Info("Balance reconciliation scheduled",
			zap.Duration("interval", cfg.Reconcile.Interval),
			zap.Int("batch_size", cfg.Reconcile.BatchSize),
			zap.Bool("apply_changes", cfg.Reconcile.ApplyChanges),
		)
	}

	if cfg.Audit.RetentionEnabled {
		retentionTrigger := scheduler.NewIntervalTrigger(
			scheduler.JobTypeAuditRetention, cfg.Audit.RetentionInterval, jobScheduler, log)
		if err := retentionTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start audit retention trigger", zap.Error(err))
		}
		defer func() {
			if err := retentionTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping audit retention trigger", zap.Error(err))
			}
		}()
		log.Info("Audit retention scheduled",
			zap.Duration("interval", cfg.Audit.RetentionInterval),
			zap.Int("retention_days", cfg.Audit.RetentionDays),
		)
	}

	// Initialize HTTP handlers
	receiptHandler := handler.NewReceiptHandler(allocationService, debtService)
	debtHandler := handler.NewDebtHandler(debtService)
	periodLockHandler := handler.NewPeriodLockHandler(lockService)
	reconciliationHandler := handler.NewReconciliationHandler(reconcileService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.RequestLogger(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	receivableRoutes := router.NewDomainGroup("receivable", "/receivable")
	receivableRoutes.POST("/receipts", receiptHandler.Create)
	receivableRoutes.GET("/receipts", receiptHandler.List)
	receivableRoutes.GET("/receipts/:id", receiptHandler.GetByID)
	receivableRoutes.POST("/receipts/preview", receiptHandler.Preview)
	receivableRoutes.POST("/receipts/:id/approve", receiptHandler.Approve)
	receivableRoutes.POST("/receipts/:id/void", receiptHandler.Void)
	receivableRoutes.POST("/receipts/:id/unvoid", receiptHandler.Unvoid)
	receivableRoutes.POST("/receipts/:id/cancel", receiptHandler.Cancel)
	receivableRoutes.POST("/invoices", debtHandler.CreateInvoice)
	receivableRoutes.GET("/invoices", debtHandler.ListInvoices)
	receivableRoutes.GET("/invoices/:id", debtHandler.GetInvoice)
	receivableRoutes.POST("/invoices/:id/void", debtHandler.VoidInvoice)
	receivableRoutes.POST("/invoices/:id/unvoid", debtHandler.UnvoidInvoice)
	receivableRoutes.POST("/advances", debtHandler.CreateAdvance)
	receivableRoutes.GET("/advances", debtHandler.ListAdvances)
	receivableRoutes.GET("/advances/:id", debtHandler.GetAdvance)
	receivableRoutes.POST("/advances/:id/void", debtHandler.VoidAdvance)
	receivableRoutes.POST("/advances/:id/unvoid", debtHandler.UnvoidAdvance)
	r.Register(receivableRoutes)

	periodRoutes := router.NewDomainGroup("period", "/period-locks")
	periodRoutes.POST("", periodLockHandler.Lock)
	periodRoutes.GET("", periodLockHandler.List)
	periodRoutes.POST("/:id/unlock", periodLockHandler.Unlock)
	r.Register(periodRoutes)

	reconciliationRoutes := router.NewDomainGroup("reconciliation", "/reconciliation")
	reconciliationRoutes.POST("/run", reconciliationHandler.Run)
	reconciliationRoutes.GET("/last", reconciliationHandler.LastResult)
	r.Register(reconciliationRoutes)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.FromGinContext(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
