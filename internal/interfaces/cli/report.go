package cli

import (
	"fmt"

	"github.com/erp/shopfloor/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	reportFrom     string
	reportTo       string
	reportStation  string
	reportEmployee string
	reportPolicy   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the productivity report",
	Long: `Print credited time and throughput per employee and station.

Dates accept YYYY-MM-DD or RFC3339; a bare --to covers that whole day.

Examples:
  attributionctl report --from 2026-03-02 --to 2026-03-06
  attributionctl report --from 2026-03-02 --policy scan_gap --json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var itemsCmd = &cobra.Command{
	Use:   "items <employee-id>",
	Short: "List the items credited to one employee",
	Args:  cobra.ExactArgs(1),
	RunE:  runItems,
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, itemsCmd} {
		c.Flags().StringVar(&reportFrom, "from", "", "start date (inclusive)")
		c.Flags().StringVar(&reportTo, "to", "", "end date")
		c.Flags().StringVar(&reportStation, "station", "", "station ID filter")
		c.Flags().StringVarP(&reportPolicy, "policy", "p", "", "time-credit policy")
	}
	reportCmd.Flags().StringVar(&reportEmployee, "employee", "", "employee ID filter")
}

func reportRequest() dto.ReportRequest {
	return dto.ReportRequest{
		DateFrom:   reportFrom,
		DateTo:     reportTo,
		StationID:  reportStation,
		EmployeeID: reportEmployee,
		Policy:     reportPolicy,
		Refresh:    true,
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := checkUUIDs(reportStation, reportEmployee); err != nil {
		return err
	}
	q, err := reportRequest().ToQuery()
	if err != nil {
		return err
	}
	report, err := svc.ComputeProductivity(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("compute report: %w", err)
	}

	resp := dto.NewReportResponse(report)
	if asJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	return renderReport(cmd.OutOrStdout(), resp)
}

func runItems(cmd *cobra.Command, args []string) error {
	employeeID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid employee ID %q", args[0])
	}
	if err := checkUUIDs(reportStation); err != nil {
		return err
	}
	q, err := reportRequest().ToQuery()
	if err != nil {
		return err
	}
	items, err := svc.ComputeItemsForEmployee(cmd.Context(), employeeID, q)
	if err != nil {
		return fmt.Errorf("compute items: %w", err)
	}

	resp := dto.NewEmployeeItemsResponse(items)
	if asJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	return renderItems(cmd.OutOrStdout(), resp)
}

// checkUUIDs rejects flag values that are set but not UUIDs
func checkUUIDs(values ...string) error {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, err := uuid.Parse(v); err != nil {
			return fmt.Errorf("invalid ID %q", v)
		}
	}
	return nil
}
