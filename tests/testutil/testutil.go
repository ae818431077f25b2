// Package testutil provides fixtures for the shopfloor integration tests:
// a migrated database, a seeded station catalog and helpers to record
// scans the way the floor terminals do.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/erp/shopfloor/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDatabase opens a migrated in-memory sqlite database closed on cleanup.
func NewSQLiteDatabase(t *testing.T) *persistence.Database {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     ":memory:",
		LogLevel: "silent",
	}, zap.NewNop())
	require.NoError(t, err, "Failed to open sqlite database")
	require.NoError(t, db.AutoMigrate(), "Failed to migrate sqlite schema")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// Floor is a seeded shop floor: one active station per workflow stage plus Office.
type Floor struct {
	Events    *persistence.GormScanEventRepository
	Items     *persistence.GormProductionItemRepository
	Employees *persistence.GormEmployeeRepository
	Stations  *persistence.GormStationRepository

	byStage map[production.Stage]production.Station
}

// NewFloor seeds the station catalog into db.
func NewFloor(t *testing.T, db *persistence.Database) *Floor {
	t.Helper()

	f := &Floor{
		Events:    persistence.NewGormScanEventRepository(db.DB),
		Items:     persistence.NewGormProductionItemRepository(db.DB),
		Employees: persistence.NewGormEmployeeRepository(db.DB),
		Stations:  persistence.NewGormStationRepository(db.DB),
		byStage:   make(map[production.Stage]production.Station),
	}

	stages := append(production.WorkflowSequence(), production.StageOffice)
	for _, stage := range stages {
		st := production.Station{ID: uuid.New(), Name: stage.String(), Active: true}
		require.NoError(t, f.Stations.Save(context.Background(), &st), "Failed to seed station %s", st.Name)
		st.Stage = stage
		f.byStage[stage] = st
	}
	return f
}

// Station returns the seeded station of a stage.
func (f *Floor) Station(stage production.Stage) production.Station {
	return f.byStage[stage]
}

// Employee stores an active employee.
func (f *Floor) Employee(t *testing.T, name string) production.Employee {
	t.Helper()
	e := production.Employee{ID: uuid.New(), Name: name, Active: true}
	require.NoError(t, f.Employees.Save(context.Background(), &e))
	return e
}

// Item stores a produced item currently at status.
func (f *Floor) Item(t *testing.T, order string, status production.ItemStatus, updatedAt time.Time) production.ProductionItem {
	t.Helper()
	it := production.ProductionItem{
		ID:              uuid.New(),
		OrderID:         uuid.New(),
		OrderNumber:     order,
		CustomerName:    "Test Customer",
		Description:     "3-seat sofa",
		Status:          status,
		IsProduced:      true,
		StatusUpdatedAt: updatedAt,
	}
	require.NoError(t, f.Items.Save(context.Background(), &it))
	return it
}

// Scan records a completed scan of an item at a stage's station.
func (f *Floor) Scan(t *testing.T, item production.ProductionItem, stage production.Stage, employee production.Employee, start time.Time, d time.Duration) production.ScanEvent {
	t.Helper()
	e := production.NewCompletedScanEvent(item.ID, f.Station(stage).ID, employee.ID, start, start.Add(d), "")
	e.CreatedAt = start
	require.NoError(t, f.Events.InsertEvent(context.Background(), &e))
	return e
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// RequireEventually polls condition until it holds or fails the test at timeout.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}
