package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crocus/internal/logger"
	"crocus/internal/services"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bank statement into an account",
	Long: `Import a bank statement CSV as actual transactions on one account.

Rows already in the ledger are counted as duplicates and skipped, so the
same statement can be imported again safely. Imported rows are matched
against planned entries on the way in.`,
	Example: `  ledgerctl import --account 0190f1c2-... statement.csv
  ledgerctl import --account 0190f1c2-... --source revolut --currency EUR june.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <batch-id>",
	Short: "Roll back an import batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollback,
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(rollbackCmd)

	importCmd.Flags().String("account", "", "Account ID the statement belongs to")
	importCmd.Flags().String("source", "", "Statement source label")
	importCmd.Flags().String("currency", "", "Currency for rows without one (default: the account currency)")
	_ = importCmd.MarkFlagRequired("account")
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.Component("cli")

	accountID, _ := cmd.Flags().GetString("account")
	source, _ := cmd.Flags().GetString("source")
	currency, _ := cmd.Flags().GetString("currency")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := e.svc.Imports.ImportStatement(cmd.Context(), services.ImportRequest{
		AccountID: accountID,
		Source:    source,
		Currency:  currency,
	}, f)
	if err != nil {
		return err
	}

	e.svc.Audit.Log(cliActor, services.AuditImport, "import_batch", report.BatchID, "", map[string]interface{}{
		"account_id": accountID,
		"imported":   report.Imported,
		"file":       args[0],
	})
	log.Infow("Statement imported", "batch_id", report.BatchID, "imported", report.Imported,
		"duplicates", report.Duplicates, "skipped", report.Skipped, "reconciled", report.Reconciled)

	fmt.Fprintf(cmd.OutOrStdout(), "batch %s: imported %d, duplicates %d, skipped %d, reconciled %d\n",
		report.BatchID, report.Imported, report.Duplicates, report.Skipped, report.Reconciled)
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	batch, err := e.svc.Imports.RollbackImport(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	e.svc.Audit.Log(cliActor, services.AuditRollback, "import_batch", batch.ID, "", nil)

	fmt.Fprintf(cmd.OutOrStdout(), "batch %s rolled back\n", batch.ID)
	return nil
}
