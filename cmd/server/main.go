package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	app "github.com/erp/shopfloor/internal/application/attribution"
	domain "github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/infrastructure/cache"
	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/erp/shopfloor/internal/infrastructure/event"
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"github.com/erp/shopfloor/internal/infrastructure/persistence"
	"github.com/erp/shopfloor/internal/infrastructure/strategy"
	"github.com/erp/shopfloor/internal/infrastructure/telemetry"
	"github.com/erp/shopfloor/internal/interfaces/http/handler"
	"github.com/erp/shopfloor/internal/interfaces/http/middleware"
	"github.com/erp/shopfloor/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Shopfloor Attribution API
//	@version		1.0
//	@description	Station attribution, productivity reports and missing-scan backfill
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
		Version:    version,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting shopfloor",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log.Named("gorm"))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if tracer.IsEnabled() {
		if err := db.EnableTracing(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: cfg.Database.SlowThreshold,
		}, log); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	policies, err := strategy.NewRegistryWithDefaultPolicy(cfg.Attribution.DefaultPolicy)
	if err != nil {
		log.Fatal("Failed to register time-credit policies", zap.Error(err))
	}

	reportCache, err := cache.NewReportCacheFactory(cfg.ReportCache, cfg.Redis, cache.WithLogger(log)).CreateCache(ctx)
	if err != nil {
		log.Fatal("Failed to create report cache", zap.Error(err))
	}
	if reportCache != nil {
		defer func() {
			_ = reportCache.Close()
		}()
	}

	bus := event.NewInMemoryEventBus(log.Named("event_bus"))
	audit := newAuditHandler(cfg.Kafka, log)
	defer func() {
		if err := audit.Close(); err != nil {
			log.Error("Error closing audit sink", zap.Error(err))
		}
	}()
	bus.Subscribe(audit)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	attributionMetrics, err := telemetry.NewAttributionMetrics(meters.Meter("shopfloor/attribution"), log)
	if err != nil {
		log.Fatal("Failed to register attribution metrics", zap.Error(err))
	}

	opts := []app.ServiceOption{
		app.WithLogger(log.Named("attribution")),
		app.WithEventPublisher(bus),
		app.WithMetrics(attributionMetrics),
	}
	if reportCache != nil {
		opts = append(opts, app.WithReportCache(reportCache))
	}
	svc := app.NewService(
		persistence.NewGormScanEventRepository(db.DB),
		persistence.NewGormProductionItemRepository(db.DB),
		persistence.NewGormEmployeeRepository(db.DB),
		persistence.NewGormStationRepository(db.DB),
		policies,
		app.Config{
			TargetStation:       cfg.Attribution.TargetStation,
			OfficeWindowPadding: cfg.Attribution.OfficeWindowPadding,
			QueryTimeout:        cfg.Attribution.QueryTimeout,
			Synthesizer: domain.SynthesizerConfig{
				StalenessBound: cfg.Attribution.StalenessBound,
				FallbackOffset: cfg.Attribution.FallbackOffset,
				MaxWindow:      cfg.Attribution.MaxSyntheticDuration,
			},
		},
		opts...,
	)
	attributionMetrics.StartPeriodicCollection(ctx, svc, cfg.Attribution.MissingScanInterval)
	defer attributionMetrics.Stop()

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	mode := gin.DebugMode
	if cfg.App.Env == "production" {
		mode = gin.ReleaseMode
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Mode:           mode,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracer.IsEnabled(),
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Meters:         meters,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	systemHandler.RegisterProbes(engine)
	systemRoutes := router.NewDomainGroup("/system").
		GET("/info", systemHandler.GetSystemInfo)

	r := router.NewRouter(engine)
	r.Register(handler.NewAttributionHandler(svc).Routes()).
		Register(systemRoutes).
		Setup()
	for _, rt := range r.Routes() {
		log.Debug("route", zap.String("method", rt.Method), zap.String("path", rt.Path))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	if err := meters.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// auditSink is an event handler that owns a connection
type auditSink interface {
	shared.EventHandler
	Close() error
}

// newAuditHandler returns the Kafka audit sink, or the log sink when Kafka is
// disabled or misconfigured. Audit delivery never blocks startup.
func newAuditHandler(cfg config.KafkaConfig, log *zap.Logger) auditSink {
	if cfg.Enabled {
		h, err := event.NewKafkaAuditHandler(cfg, log)
		if err == nil {
			log.Info("Audit events go to Kafka", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
			return h
		}
		log.Warn("Kafka audit sink unavailable, logging audit events instead", zap.Error(err))
	}
	return event.NewLogAuditHandler(log)
}
