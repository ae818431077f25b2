package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/shopfloor/internal/infrastructure/persistence"
	"github.com/erp/shopfloor/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// readinessTimeout bounds the dependency check of the readiness probe
const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStatter reports connection pool usage
type PoolStatter interface {
	Stats() (persistence.ConnectionStats, error)
}

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	db        Pinger
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, db Pinger) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		db:        db,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string        `json:"name"`
	Version   string        `json:"version"`
	GoVersion string        `json:"go_version"`
	Uptime    string        `json:"uptime"`
	DBPool    *DBPoolStatus `json:"db_pool,omitempty"`
}

// DBPoolStatus is the connection pool part of the system info
type DBPoolStatus struct {
	MaxOpen   int    `json:"max_open"`
	Open      int    `json:"open"`
	InUse     int    `json:"in_use"`
	Idle      int    `json:"idle"`
	WaitCount int64  `json:"wait_count"`
	WaitTime  string `json:"wait_time"`
}

// RegisterProbes mounts /healthz and /readyz on the engine root
func (h *SystemHandler) RegisterProbes(engine *gin.Engine) {
	engine.GET("/healthz", h.Healthz)
	engine.GET("/readyz", h.Readyz)
}

// Healthz reports that the process is alive
func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports whether the database answers a ping
func (h *SystemHandler) Readyz(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "ok"})
}

// GetSystemInfo returns name, version, uptime and, when the database
// exposes them, connection pool statistics
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if ps, ok := h.db.(PoolStatter); ok {
		if stats, err := ps.Stats(); err == nil {
			info.DBPool = &DBPoolStatus{
				MaxOpen:   stats.MaxOpenConnections,
				Open:      stats.OpenConnections,
				InUse:     stats.InUse,
				Idle:      stats.Idle,
				WaitCount: stats.WaitCount,
				WaitTime:  stats.WaitDuration.String(),
			}
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}
