package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"crocus/internal/config"
	"crocus/internal/database"
	"crocus/internal/fxfeed"
	"crocus/internal/server"
)

// cliActor is the actor recorded in the audit log for CLI operations.
const cliActor = "ledgerctl"

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the crocus ledger from the command line",
	Long: `ledgerctl runs ledger operations directly against the database:
statement imports and rollbacks, aggregation jobs and exchange rate fetches.

It reads the same environment as the API server (DB_*, RATES_FEED_*,
RATE_CURRENCIES, LEDGER_RULES_FILE).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("migrate", false, "Apply pending migrations before running the command")
}

// env is an opened ledger: the database plus the full service graph.
type env struct {
	db  *database.Manager
	svc *server.Services
}

func (e *env) Close() {
	_ = e.db.Close()
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger rules: %w", err)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := dbManager.RunMigrations(); err != nil {
			_ = dbManager.Close()
			return nil, err
		}
	}

	feed := fxfeed.New(&http.Client{Timeout: cfg.RatesFeedTimeout}, cfg.RatesFeedURL)
	return &env{db: dbManager, svc: server.NewServices(dbManager.DB(), cfg, rules, feed, nil)}, nil
}
