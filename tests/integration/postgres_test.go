package integration

import (
	"context"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/infrastructure/persistence/models"
	"github.com/erp/shopfloor/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Migrations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewTestDB(t)

	status, err := tdb.Migrator.Status()
	require.NoError(t, err)
	assert.True(t, status.Applied)
	assert.False(t, status.Dirty)
	assert.Equal(t, uint(1), status.Version)

	for _, table := range []string{"stations", "employees", "production_items", "scan_events"} {
		assert.True(t, tdb.DB.Migrator().HasTable(table), "table %s", table)
	}
	assert.True(t, tdb.DB.Migrator().HasIndex(&models.ScanEventModel{}, "idx_scan_events_backfill_key"))

	require.NoError(t, tdb.Ping(context.Background()))
}

func TestPostgres_ScanEventRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewTestDB(t)
	f := testutil.NewFloor(t, tdb.Database)
	ctx := context.Background()

	anna, ben := f.Employee(t, "Anna"), f.Employee(t, "Ben")
	sofa := f.Item(t, "SO-4001", production.ItemStatusStuffing, flowDay.Add(12*time.Hour))
	sample := f.Item(t, "SO-4002", production.ItemStatusStuffing, flowDay.Add(12*time.Hour))
	sample.IsProduced = false
	require.NoError(t, f.Items.Save(ctx, &sample))

	sewing := f.Scan(t, sofa, production.StageSewing, ben, flowDay.Add(9*time.Hour), 45*time.Minute)
	cutting := f.Scan(t, sofa, production.StageCutting, anna, flowDay.Add(8*time.Hour), 30*time.Minute)
	f.Scan(t, sample, production.StageCutting, anna, flowDay.Add(8*time.Hour), 5*time.Minute)

	t.Run("fetch orders by start and skips samples", func(t *testing.T) {
		from, to := flowDay, flowDay.Add(24*time.Hour)
		events, err := f.Events.FetchEvents(ctx, production.EventFilter{DateFrom: &from, DateTo: &to})
		require.NoError(t, err)

		require.Len(t, events, 2)
		assert.Equal(t, cutting.ID, events[0].ID)
		assert.Equal(t, sewing.ID, events[1].ID)
		assert.Equal(t, int64(2700), events[1].Duration())
	})

	t.Run("candidate items beyond sewing", func(t *testing.T) {
		foam := f.Station(production.StageFoamCutting)
		items, err := f.Items.FindCandidateItems(ctx, foam.ID, production.StatusesBeyond(production.StageFoamCutting), production.ItemFilter{})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, sofa.ID, items[0].ID)
	})

	t.Run("backfill stored once", func(t *testing.T) {
		foam := f.Station(production.StageFoamCutting)
		start := flowDay.Add(10 * time.Hour)

		first := production.NewCompletedScanEvent(sofa.ID, foam.ID, ben.ID, start, start.Add(time.Hour),
			production.ManualAttributionNote("lead-7", start))
		require.NoError(t, f.Events.InsertIfAbsent(ctx, &first))

		second := production.NewCompletedScanEvent(sofa.ID, foam.ID, anna.ID, start, start.Add(time.Minute), "")
		assert.ErrorIs(t, f.Events.InsertIfAbsent(ctx, &second), production.ErrDuplicateAttribution)

		events, err := f.Events.FetchEventsForItems(ctx, []uuid.UUID{sofa.ID})
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})
}
