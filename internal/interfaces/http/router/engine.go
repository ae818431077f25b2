package router

import (
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"github.com/erp/shopfloor/internal/infrastructure/telemetry"
	"github.com/erp/shopfloor/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineConfig configures the middleware chain of the HTTP engine
type EngineConfig struct {
	// Mode is the gin mode: debug, release or test
	Mode           string
	ServiceName    string
	TracingEnabled bool
	TrustedProxies []string
	Meters         *telemetry.MeterProvider
	Logger         *zap.Logger
}

// NewEngine builds a gin engine with request IDs, panic recovery, tracing,
// metrics and request logging installed in that order.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(cfg.Meters),
		logger.GinMiddleware(log),
	)
	return engine, nil
}
