package cli

import (
	app "github.com/erp/shopfloor/internal/application/attribution"
	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "List the time-credit policies",
	Args:  cobra.NoArgs,
	RunE:  runPolicies,
}

func runPolicies(cmd *cobra.Command, args []string) error {
	// the database is not needed; a missing config file only loses the default
	if loaded, err := config.Load(); err == nil {
		cfg = loaded
	}
	registry, err := newPolicyRegistry()
	if err != nil {
		return err
	}

	rows := app.DescribePolicies(registry)

	if asJSON {
		return printJSON(cmd.OutOrStdout(), rows)
	}
	return renderPolicies(cmd.OutOrStdout(), rows)
}
