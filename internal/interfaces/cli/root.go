// Package cli provides the attributionctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	app "github.com/erp/shopfloor/internal/application/attribution"
	domain "github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/infrastructure/config"
	"github.com/erp/shopfloor/internal/infrastructure/event"
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"github.com/erp/shopfloor/internal/infrastructure/persistence"
	"github.com/erp/shopfloor/internal/infrastructure/strategy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Global flags
	verbose bool
	asJSON  bool

	cfg *config.Config
	log *zap.Logger
	db  *persistence.Database
	bus *event.InMemoryEventBus
	svc *app.Service
)

var rootCmd = &cobra.Command{
	Use:   "attributionctl",
	Short: "Inspect productivity and repair missing station scans",
	Long: `attributionctl runs the attribution engine against the shop floor database.

It prints productivity reports, lists produced items that skipped the
target station, and backfills the missing scan for an operator.
Connection settings come from config.toml and SHOPFLOOR_* variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "policies" {
			return nil
		}
		return connect(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if bus != nil {
			_ = bus.Stop(context.Background())
		}
		if db != nil {
			if err := db.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if log != nil {
			_ = logger.Sync(log)
		}
	},
}

// connect loads configuration and builds the service against the configured database
func connect(ctx context.Context) error {
	var err error
	if cfg, err = config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	if log, err = logger.New(&logger.Config{Level: level, Format: "console", Output: "stderr"}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if db, err = persistence.NewDatabase(&cfg.Database, log.Named("gorm")); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}

	registry, err := newPolicyRegistry()
	if err != nil {
		return err
	}

	bus = event.NewInMemoryEventBus(log.Named("event_bus"))
	bus.Subscribe(event.NewLogAuditHandler(log))
	if err := bus.Start(ctx); err != nil {
		return err
	}

	svc = app.NewService(
		persistence.NewGormScanEventRepository(db.DB),
		persistence.NewGormProductionItemRepository(db.DB),
		persistence.NewGormEmployeeRepository(db.DB),
		persistence.NewGormStationRepository(db.DB),
		registry,
		app.Config{
			TargetStation:       cfg.Attribution.TargetStation,
			OfficeWindowPadding: cfg.Attribution.OfficeWindowPadding,
			QueryTimeout:        cfg.Attribution.QueryTimeout,
			Synthesizer: domain.SynthesizerConfig{
				StalenessBound: cfg.Attribution.StalenessBound,
				FallbackOffset: cfg.Attribution.FallbackOffset,
				MaxWindow:      cfg.Attribution.MaxSyntheticDuration,
			},
		},
		app.WithLogger(log.Named("attribution")),
		app.WithEventPublisher(bus),
	)
	return nil
}

func newPolicyRegistry() (*strategy.StrategyRegistry, error) {
	def := ""
	if cfg != nil {
		def = cfg.Attribution.DefaultPolicy
	}
	r, err := strategy.NewRegistryWithDefaultPolicy(def)
	if err != nil {
		return nil, fmt.Errorf("register policies: %w", err)
	}
	return r, nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(policiesCmd)
}
