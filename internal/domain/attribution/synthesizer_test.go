package attribution

import (
	"strings"
	"testing"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizer_Plan(t *testing.T) {
	synth := NewSynthesizer(testCatalog(), SynthesizerConfig{})
	item := production.ProductionItem{ID: uuid.New(), Status: production.ItemStatusPackaging, IsProduced: true}
	worker := production.Employee{ID: uuid.New(), Name: "Sam", Active: true}
	other := uuid.New()
	now := at(12, 0)

	t.Run("spans from preceding end to following start", func(t *testing.T) {
		events := []production.ScanEvent{
			completed(item.ID, cuttingStation, other, at(9, 0), at(9, 10)),
			completed(item.ID, foamCuttingStation, other, at(9, 30), at(9, 50)),
		}

		plan, err := synth.Plan(item, events, sewingStation, worker, "admin-7", now)

		require.NoError(t, err)
		assert.False(t, plan.UsedFallback)
		assert.False(t, plan.Clamped)
		assert.True(t, at(9, 10).Equal(plan.WindowStart))
		assert.True(t, at(9, 30).Equal(plan.WindowEnd))
		assert.Equal(t, int64(1200), plan.Event.Duration())
		assert.Equal(t, sewingStation.ID, plan.Event.StationID)
		assert.Equal(t, worker.ID, plan.Event.EmployeeID)
		assert.Equal(t, item.ID, plan.Event.ItemID)
		assert.True(t, plan.Event.IsManualAttribution())
		assert.True(t, strings.Contains(plan.Event.Note, "by admin-7 at 2026-03-02T12:00:00Z"))
	})

	t.Run("rejects duplicate attribution", func(t *testing.T) {
		events := []production.ScanEvent{completed(item.ID, sewingStation, other, at(9, 0), at(9, 10))}

		plan, err := synth.Plan(item, events, sewingStation, worker, "admin", now)

		assert.Nil(t, plan)
		assert.ErrorIs(t, err, production.ErrDuplicateAttribution)
	})

	t.Run("rejects inactive employee", func(t *testing.T) {
		inactive := worker
		inactive.Active = false

		_, err := synth.Plan(item, nil, sewingStation, inactive, "admin", now)

		assert.ErrorIs(t, err, production.ErrEmployeeInvalid)
	})

	t.Run("rejects stations outside the workflow", func(t *testing.T) {
		_, err := synth.Plan(item, nil, officeStation, worker, "admin", now)

		assert.ErrorIs(t, err, production.ErrStationNotConfigured)
	})

	t.Run("stale anchor falls back to recent window", func(t *testing.T) {
		old := baseDay.AddDate(0, 0, -40)
		events := []production.ScanEvent{
			completed(item.ID, cuttingStation, other, old, old.Add(10*time.Minute)),
			completed(item.ID, foamCuttingStation, other, at(9, 30), at(9, 50)),
		}

		plan, err := synth.Plan(item, events, sewingStation, worker, "admin", now)

		require.NoError(t, err)
		assert.True(t, plan.UsedFallback)
		assert.True(t, at(10, 0).Equal(plan.WindowStart))
		assert.True(t, at(10, 0).Add(time.Second).Equal(plan.WindowEnd))
		assert.Equal(t, int64(1), plan.Event.Duration())
	})

	t.Run("future anchor falls back", func(t *testing.T) {
		events := []production.ScanEvent{completed(item.ID, cuttingStation, other, at(11, 50), at(13, 0))}

		plan, err := synth.Plan(item, events, sewingStation, worker, "admin", now)

		require.NoError(t, err)
		assert.True(t, plan.UsedFallback)
	})

	t.Run("no neighbours yields one second at fallback", func(t *testing.T) {
		plan, err := synth.Plan(item, nil, sewingStation, worker, "admin", now)

		require.NoError(t, err)
		assert.True(t, plan.UsedFallback)
		assert.Nil(t, plan.Preceding)
		assert.Nil(t, plan.Following)
		assert.Equal(t, int64(1), plan.Event.Duration())
	})

	t.Run("malformed preceding event never anchors the window", func(t *testing.T) {
		start, end := now.Add(-time.Hour), now.Add(-3*time.Hour)
		broken := production.ScanEvent{
			ID:              uuid.New(),
			ItemID:          item.ID,
			StationID:       cuttingStation.ID,
			EmployeeID:      other,
			StartTime:       &start,
			EndTime:         &end,
			DurationSeconds: int64Ptr(-7200),
			CreatedAt:       start,
		}

		plan, err := synth.Plan(item, []production.ScanEvent{broken}, sewingStation, worker, "admin", now)

		require.NoError(t, err)
		assert.True(t, plan.UsedFallback)
		assert.Nil(t, plan.Preceding)
		assert.True(t, now.Add(-2*time.Hour).Equal(plan.WindowStart))
		assert.Equal(t, int64(1), plan.Event.Duration())
	})

	t.Run("malformed event at the target still blocks a duplicate", func(t *testing.T) {
		start := at(9, 0)
		broken := production.ScanEvent{
			ID:              uuid.New(),
			ItemID:          item.ID,
			StationID:       sewingStation.ID,
			EmployeeID:      other,
			StartTime:       &start,
			DurationSeconds: int64Ptr(-60),
			CreatedAt:       start,
		}

		_, err := synth.Plan(item, []production.ScanEvent{broken}, sewingStation, worker, "admin", now)

		assert.ErrorIs(t, err, production.ErrDuplicateAttribution)
	})

	t.Run("reversed neighbours still produce a positive window", func(t *testing.T) {
		events := []production.ScanEvent{
			completed(item.ID, cuttingStation, other, at(9, 0), at(9, 10)),
			completed(item.ID, foamCuttingStation, other, at(9, 5), at(9, 8)),
		}

		plan, err := synth.Plan(item, events, sewingStation, worker, "admin", now)

		require.NoError(t, err)
		assert.True(t, plan.WindowEnd.After(plan.WindowStart))
		assert.Equal(t, int64(1), plan.Event.Duration())
	})

	t.Run("caps windows longer than a day", func(t *testing.T) {
		later := now.Add(72 * time.Hour)
		events := []production.ScanEvent{
			completed(item.ID, cuttingStation, other, at(9, 0), at(9, 10)),
			completed(item.ID, foamCuttingStation, other, at(9, 0).Add(48*time.Hour), at(9, 30).Add(48*time.Hour)),
		}

		plan, err := synth.Plan(item, events, sewingStation, worker, "admin", later)

		require.NoError(t, err)
		assert.True(t, plan.Clamped)
		assert.Equal(t, production.MaxEventDurationSeconds, plan.Event.Duration())
	})

	t.Run("truncates to whole seconds", func(t *testing.T) {
		end := at(9, 10).Add(700 * time.Millisecond)
		events := []production.ScanEvent{completed(item.ID, cuttingStation, other, at(9, 0), end)}

		plan, err := synth.Plan(item, events, sewingStation, worker, "admin", now)

		require.NoError(t, err)
		assert.True(t, at(9, 10).Equal(plan.WindowStart))
		assert.Zero(t, plan.Event.StartTime.Nanosecond())
	})

	t.Run("picks the nearest stage and latest end", func(t *testing.T) {
		events := []production.ScanEvent{
			completed(item.ID, cuttingStation, other, at(8, 0), at(8, 10)),
			completed(item.ID, foamCuttingStation, other, at(9, 0), at(9, 10)),
			completed(item.ID, foamCuttingStation, other, at(9, 0), at(9, 20)),
			completed(item.ID, packagingStation, other, at(10, 0), at(10, 30)),
			completed(item.ID, packagingStation, other, at(9, 45), at(10, 30)),
		}

		plan, err := synth.Plan(item, events, stuffingStation, worker, "admin", now)

		require.NoError(t, err)
		assert.True(t, at(9, 20).Equal(plan.WindowStart))
		assert.True(t, at(9, 45).Equal(plan.WindowEnd))
	})

	t.Run("synthetic event passes normalization", func(t *testing.T) {
		events := []production.ScanEvent{
			completed(item.ID, cuttingStation, other, at(9, 0), at(9, 10)),
			completed(item.ID, foamCuttingStation, other, at(9, 30), at(9, 50)),
		}
		plan, err := synth.Plan(item, events, sewingStation, worker, "admin", now)
		require.NoError(t, err)

		result := NewDefaultNormalizer(testCatalog()).Normalize([]production.ScanEvent{plan.Event})

		assert.Len(t, result.Valid, 1)
	})
}

func TestValidateActor(t *testing.T) {
	assert.Error(t, ValidateActor(""))
	assert.NoError(t, ValidateActor("admin"))
}
