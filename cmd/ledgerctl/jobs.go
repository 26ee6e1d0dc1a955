package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"crocus/internal/services"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run and inspect the aggregation jobs",
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Recompute one cache, or all of them",
	Long: `Run an aggregation job by name: ` + strings.Join(services.JobOrder, ", ") + `,
or "all" to run every job in order. A failing job does not stop the
ones after it under "all".`,
	Example: `  ledgerctl jobs run all
  ledgerctl jobs run pnl_monthly --from 2024-01-01 --to 2024-06-30`,
	Args: cobra.ExactArgs(1),
	RunE: runJobs,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run of every job",
	Args:  cobra.NoArgs,
	RunE:  runJobsStatus,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsRunCmd)
	jobsCmd.AddCommand(jobsStatusCmd)

	jobsRunCmd.Flags().String("from", "", "Window start (YYYY-MM-DD, default: the job's own window)")
	jobsRunCmd.Flags().String("to", "", "Window end (YYYY-MM-DD)")
}

func runJobs(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	e.svc.Audit.Log(cliActor, services.AuditRunJob, "job", args[0], "", map[string]interface{}{"from": from, "to": to})
	statuses, runErr := e.svc.Jobs.Run(cmd.Context(), args[0], services.JobWindow{From: from, To: to})
	for _, st := range statuses {
		line := fmt.Sprintf("%-16s %s", st.Name, st.State)
		if st.From != "" || st.To != "" {
			line += fmt.Sprintf(" [%s..%s]", st.From, st.To)
		}
		if st.Message != "" {
			line += " " + st.Message
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return runErr
}

func runJobsStatus(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	statuses, err := e.svc.Jobs.ListStatus()
	if err != nil {
		return err
	}
	for _, st := range statuses {
		finished := "-"
		if st.FinishedAt != nil {
			finished = st.FinishedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-8s %s\n", st.Name, st.State, finished)
	}
	return nil
}
