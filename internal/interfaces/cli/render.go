package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	app "github.com/erp/shopfloor/internal/application/attribution"
	"github.com/erp/shopfloor/internal/interfaces/http/dto"
)

// Theme holds the color scheme of table output.
type Theme struct {
	Header lipgloss.Color
	Border lipgloss.Color
	Warn   lipgloss.Color
	Hint   lipgloss.Color
}

var defaultTheme = Theme{
	Header: lipgloss.Color("#5FAFD7"),
	Border: lipgloss.Color("#6C6C6C"),
	Warn:   lipgloss.Color("#FFAF00"),
	Hint:   lipgloss.Color("#6C6C6C"),
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Header).Bold(true).Padding(0, 1)
}

func (t Theme) cellStyle() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1)
}

func (t Theme) warnStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warn)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) table(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Border)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.headerStyle()
			}
			return t.cellStyle()
		})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderReport(w io.Writer, r dto.ReportResponse) error {
	th := defaultTheme
	if r.Status != string(app.ReportStatusOK) {
		_, err := fmt.Fprintln(w, th.hintStyle().Render(r.Message))
		return err
	}

	t := th.table("Employee", "Station", "Items", "Hours", "Avg sec", "Items/h")
	for _, row := range r.Rows {
		t.Row(
			row.EmployeeName,
			row.StationName,
			strconv.Itoa(row.ItemsProcessed),
			row.TotalHours.StringFixed(2),
			row.AvgDurationSeconds.StringFixed(2),
			row.EfficiencyItemsPerHour.StringFixed(2),
		)
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	s := r.Summary
	if _, err := fmt.Fprintf(w, "policy %s | %d employees | %d items (%d distinct) | %s h | avg %s items/h\n",
		r.Policy, s.DistinctEmployees, s.TotalItems, s.DistinctItems,
		s.TotalHours.StringFixed(2), s.AverageEfficiency.StringFixed(2)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data quality %s (%s) | %d of %d events excluded\n",
		r.Quality.Grade, r.Quality.Score.StringFixed(2), r.ExcludedEvents, r.Quality.TotalEvents); err != nil {
		return err
	}
	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintln(w, th.warnStyle().Render("! "+warning.Message)); err != nil {
			return err
		}
	}
	return nil
}

func renderItems(w io.Writer, items []dto.EmployeeItemResponse) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, defaultTheme.hintStyle().Render("No credited items"))
		return err
	}
	t := defaultTheme.table("Order", "Station", "Description", "Hours", "Scans", "Last scan")
	for _, it := range items {
		t.Row(
			it.OrderNumber,
			it.StationName,
			it.Description,
			it.CreditedHours.StringFixed(2),
			strconv.Itoa(it.ScanCount),
			it.LastScanAt.Format(time.DateTime),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderMissing(w io.Writer, r dto.MissingAttributionResponse) error {
	if r.Count == 0 {
		_, err := fmt.Fprintln(w, defaultTheme.hintStyle().Render("No missing attributions"))
		return err
	}
	t := defaultTheme.table("Item", "Order", "Status", "Current station", "Current employee", "Updated")
	for _, m := range r.Items {
		t.Row(
			m.ItemID.String(),
			m.OrderNumber,
			m.Status,
			m.CurrentStationName,
			m.CurrentEmployeeName,
			m.StatusUpdatedAt.Format(time.DateTime),
		)
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d items missing a scan\n", r.Count)
	return err
}

func renderEvent(w io.Writer, e dto.ScanEventResponse) error {
	t := defaultTheme.table("Field", "Value").
		Row("event", e.ID.String()).
		Row("item", e.ItemID.String()).
		Row("station", e.StationID.String()).
		Row("employee", e.EmployeeID.String()).
		Row("window", formatWindow(e.StartTime, e.EndTime)).
		Row("note", e.Note)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderPolicies(w io.Writer, policies []app.PolicyInfo) error {
	t := defaultTheme.table("Policy", "Default", "Description")
	for _, p := range policies {
		def := ""
		if p.Default {
			def = "yes"
		}
		t.Row(p.Name, def, p.Description)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatWindow(start, end *time.Time) string {
	if start == nil || end == nil {
		return "-"
	}
	return start.Format(time.DateTime) + " to " + end.Format(time.TimeOnly)
}
