package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	app "github.com/erp/shopfloor/internal/application/attribution"
	domain "github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *app.ProductivityReport {
	return &app.ProductivityReport{
		Status: app.ReportStatusOK,
		Policy: domain.PolicyWorkflowGated,
		Rows: []domain.EmployeeStationMetric{{
			EmployeeID:             uuid.New(),
			EmployeeName:           "Ana",
			StationID:              uuid.New(),
			StationName:            "Sewing",
			Stage:                  production.StageSewing,
			ItemsProcessed:         2,
			TotalDurationSeconds:   5400,
			AvgDurationSeconds:     2700,
			EfficiencyItemsPerHour: 1.3333,
		}},
		Summary:  domain.Summary{DistinctEmployees: 1, TotalItems: 2, DistinctItems: 2, TotalDurationSeconds: 5400, AverageEfficiency: 1.3333},
		Warnings: []domain.Warning{{Kind: domain.WarningNonForwardTransition, Message: "Item SO-1 has an open scan"}},
		Quality:  domain.DataQuality{TotalEvents: 5, ValidEvents: 4, ExcludedEvents: 1, Score: 80, Grade: "B"},
	}
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, dto.NewReportResponse(sampleReport())))

	out := buf.String()
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Sewing")
	assert.Contains(t, out, "1.50")
	assert.Contains(t, out, "1.33")
	assert.Contains(t, out, "policy workflow_gated")
	assert.Contains(t, out, "data quality B (80.00)")
	assert.Contains(t, out, "Item SO-1 has an open scan")
}

func TestRenderReport_NoData(t *testing.T) {
	var buf bytes.Buffer
	r := &app.ProductivityReport{Status: app.ReportStatusNoData, Message: "No scan events in range"}
	require.NoError(t, renderReport(&buf, dto.NewReportResponse(r)))

	assert.Contains(t, buf.String(), "No scan events in range")
	assert.NotContains(t, buf.String(), "Employee")
}

func TestRenderMissing(t *testing.T) {
	sewing := production.Station{ID: uuid.New(), Name: "Sewing"}
	target := uuid.New()
	missing := []domain.MissingAttributionItem{{
		Item: production.ProductionItem{
			ID:              uuid.New(),
			OrderNumber:     "SO-77",
			Status:          production.ItemStatusPackaging,
			StatusUpdatedAt: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		},
		CurrentStation:      &sewing,
		CurrentEmployeeName: "Ben",
	}}

	var buf bytes.Buffer
	require.NoError(t, renderMissing(&buf, dto.NewMissingAttributionResponse(&target, missing)))

	out := buf.String()
	assert.Contains(t, out, "SO-77")
	assert.Contains(t, out, "Ben")
	assert.Contains(t, out, "2026-03-02 14:00:00")
	assert.Contains(t, out, "1 items missing a scan")

	buf.Reset()
	require.NoError(t, renderMissing(&buf, dto.NewMissingAttributionResponse(&target, nil)))
	assert.Contains(t, buf.String(), "No missing attributions")
}

func TestRenderEvent(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ev := production.NewCompletedScanEvent(uuid.New(), uuid.New(), uuid.New(), start, start.Add(time.Minute), production.ManualAttributionNote("lead-3", start))

	var buf bytes.Buffer
	require.NoError(t, renderEvent(&buf, dto.NewScanEventResponse(&ev)))

	out := buf.String()
	assert.Contains(t, out, ev.ItemID.String())
	assert.Contains(t, out, "2026-03-02 09:00:00 to 09:01:00")
	assert.Contains(t, out, "lead-3")
}

func TestRenderPolicies(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderPolicies(&buf, []app.PolicyInfo{
		{Name: domain.PolicyWorkflowGated, Description: "Credit forward workflow steps", Default: true},
		{Name: domain.PolicyScanGap, Description: "Credit the gap between scans"},
	}))

	lines := strings.Split(buf.String(), "\n")
	var gated string
	for _, l := range lines {
		if strings.Contains(l, domain.PolicyWorkflowGated) {
			gated = l
		}
	}
	assert.Contains(t, gated, "yes")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, dto.NewReportResponse(sampleReport())))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ok", decoded["status"])
}

func TestCheckUUIDs(t *testing.T) {
	assert.NoError(t, checkUUIDs("", uuid.NewString()))
	assert.Error(t, checkUUIDs("station-1"))
}

func TestRootCommand_Wiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"report", "items", "detect", "backfill", "policies"} {
		assert.True(t, names[want], want)
	}
	assert.NotNil(t, backfillCmd.Flags().Lookup("employee"))
}
