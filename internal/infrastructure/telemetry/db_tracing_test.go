package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type stationRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64"`
}

func setupTracedDB(t *testing.T, cfg DBTracingConfig) (*gorm.DB, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&stationRow{}))

	require.NoError(t, NewDBTracingPlugin(cfg, zaptest.NewLogger(t)).Register(db))
	return db, sr
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{}, nil)
	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
	assert.NotNil(t, p.logger)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db, sr := setupTracedDB(t, DBTracingConfig{Enabled: false})

	require.NoError(t, db.Create(&stationRow{Name: "Sewing"}).Error)
	assert.Empty(t, sr.Ended())
}

func TestDBTracingPlugin_RecordsSpans(t *testing.T) {
	db, sr := setupTracedDB(t, DBTracingConfig{Enabled: true, DBSystem: "sqlite"})

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	require.NoError(t, db.WithContext(ctx).Create(&stationRow{Name: "Cutting"}).Error)
	var rows []stationRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	parent.End()

	var dbSpans int
	for _, s := range sr.Ended() {
		if s.Parent().SpanID() == parent.SpanContext().SpanID() {
			dbSpans++
			assert.NotEqual(t, codes.Error, s.Status().Code)
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}

func TestDBTracingPlugin_SlowQueryEvent(t *testing.T) {
	db, sr := setupTracedDB(t, DBTracingConfig{Enabled: true, DBSystem: "sqlite", SlowQueryThresh: time.Nanosecond})

	require.NoError(t, db.WithContext(context.Background()).Create(&stationRow{Name: "Packaging"}).Error)

	var slow bool
	for _, s := range sr.Ended() {
		for _, ev := range s.Events() {
			if ev.Name == "slow_query_warning" {
				slow = true
			}
		}
	}
	assert.True(t, slow)
}

func TestDBTracingPlugin_MarksErrors(t *testing.T) {
	db, sr := setupTracedDB(t, DBTracingConfig{Enabled: true, DBSystem: "sqlite"})

	err := db.WithContext(context.Background()).Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)

	var errored bool
	for _, s := range sr.Ended() {
		if s.Status().Code == codes.Error {
			errored = true
		}
	}
	assert.True(t, errored)
}
