package main

import (
	"fmt"
	"time"

	"sentinel-be/internal/repository/specification"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	runId string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored state of a run",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.runId, "run", "", "run ID (required)")
	_ = statusCmd.MarkFlagRequired("run")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	uowFactory, err := openStore(false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	uow := uowFactory.NewUnitOfWork(ctx)

	row, err := uow.RunRepository().FindOne(ctx, specification.ByRunId{RunId: statusFlags.runId}, specification.NewestFirst())
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("run %q not found", statusFlags.runId)
	}

	status := row.ToStatus()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:       %s\n", status.RunId)
	fmt.Fprintf(out, "Status:    %s\n", statusLabel(string(status.Status)))
	fmt.Fprintf(out, "Processed: %d/%d\n", status.Processed, status.Total)
	fmt.Fprintf(out, "Started:   %s\n", status.StartedAt.Format(time.RFC3339))
	if status.EndedAt != nil {
		fmt.Fprintf(out, "Ended:     %s\n", status.EndedAt.Format(time.RFC3339))
	}
	if status.Error != nil {
		fmt.Fprintf(out, "Error:     %s\n", *status.Error)
	}

	metrics, err := uow.MetricRepository().FindOne(ctx, specification.ByRunId{RunId: status.RunId})
	if err != nil {
		return err
	}
	if metrics != nil {
		for _, k := range []string{"lead_time_days", "false_alarm_rate", "severity_mae", "calibration_brier"} {
			fmt.Fprintf(out, "  %-18s %.3f\n", k, metrics.Map()[k])
		}
	}
	return nil
}
