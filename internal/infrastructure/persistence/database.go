package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"github.com/erp/shopfloor/internal/infrastructure/persistence/models"
	"github.com/erp/shopfloor/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Database is the shared gorm handle behind every repository.
type Database struct {
	DB     *gorm.DB
	driver string
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	case "postgres", "":
		return postgres.Open(cfg.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// NewDatabase connects, sizes the pool and pings. Statements go to zapLogger
// at cfg.LogLevel.
func NewDatabase(cfg *config.DatabaseConfig, zapLogger *zap.Logger) (*Database, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(cfg.LogLevel),
			logger.WithSlowThreshold(cfg.SlowThreshold)),
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver != "sqlite",
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	d := &Database{DB: db, driver: cfg.Driver}
	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// a single writer serialises InsertIfAbsent on the file
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", dialector.Name(), err)
	}
	return d, nil
}

// NewDatabaseFromGorm wraps a handle opened elsewhere, e.g. by a test container.
func NewDatabaseFromGorm(db *gorm.DB) *Database {
	return &Database{DB: db, driver: db.Dialector.Name()}
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return pool, nil
}

// EnableTracing registers otelgorm plus the slow query callbacks.
func (d *Database) EnableTracing(cfg telemetry.DBTracingConfig, zapLogger *zap.Logger) error {
	if cfg.DBSystem == "" {
		cfg.DBSystem = d.dbSystem()
	}
	return telemetry.NewDBTracingPlugin(cfg, zapLogger).Register(d.DB)
}

// AutoMigrate builds the schema from the models. Only sqlite uses it;
// postgres goes through the SQL migrations.
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (d *Database) dbSystem() string {
	if d.driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// ConnectionStats is the subset of sql.DBStats reported by /system/info.
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

func (d *Database) Stats() (ConnectionStats, error) {
	pool, err := d.pool()
	if err != nil {
		return ConnectionStats{}, err
	}
	s := pool.Stats()
	return ConnectionStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration,
	}, nil
}
