package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sentinel-be/internal/bootstrap"
	"sentinel-be/internal/config"
	"sentinel-be/internal/dataset"
	"sentinel-be/internal/dto"
	"sentinel-be/internal/pkg/logger"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runFlags struct {
	cases   int
	dataset string
	verbose bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score cases in-process and print the run metrics",
	Long: "Run the full pipeline over the first N dataset cases without the HTTP server.\n" +
		"Results land in --db when given, otherwise in a throwaway in-memory store.",
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.cases, "cases", 0, "number of cases to score (0 = RUN_DEFAULT_CASES)")
	f.StringVar(&runFlags.dataset, "dataset", "", "JSONL dataset path (defaults to DATASET_PATH)")
	f.BoolVarP(&runFlags.verbose, "verbose", "v", false, "print pipeline logs")
}

func runRun(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Load()
	if runFlags.dataset != "" {
		cfg.Pipeline.DatasetPath = runFlags.dataset
	}

	corpus, err := dataset.LoadJSONL(cfg.Pipeline.DatasetPath)
	if err != nil {
		return err
	}
	if len(corpus) == 0 {
		return fmt.Errorf("dataset %s has no cases", cfg.Pipeline.DatasetPath)
	}

	uowFactory, err := openStore(true)
	if err != nil {
		return err
	}

	pipelineLogger := log.New(io.Discard, "", 0)
	if runFlags.verbose {
		pipelineLogger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scoring, err := bootstrap.NewPipeline(ctx, cfg, uowFactory, corpus, nil, pipelineLogger)
	if err != nil {
		return err
	}
	runs := service.NewRunService(
		uowFactory,
		scoring.Orchestrator,
		scoring.Statuses,
		nil,
		scoring.Audit,
		nil,
		corpus,
		bootstrap.RunConfig(cfg),
		logger.NewNopLogger(),
	)

	started, err := runs.StartRun(ctx, &dto.StartRunRequest{NumCases: runFlags.cases})
	if err != nil {
		return err
	}
	color.Cyan("Run %s started over %s", started.RunId, cfg.Pipeline.DatasetPath)

	done := make(chan struct{})
	go func() {
		runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		runs.Shutdown()
		return fmt.Errorf("run %s interrupted", started.RunId)
	}

	status, err := runs.GetRunStatus(context.Background(), started.RunId)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Status:    %s\n", statusLabel(status.Status))
	fmt.Fprintf(out, "Processed: %d/%d\n", status.Processed, status.Total)
	if status.Error != nil {
		color.Red("Error: %s", *status.Error)
		return fmt.Errorf("run %s failed", started.RunId)
	}

	uow := uowFactory.NewUnitOfWork(context.Background())
	metrics, err := uow.MetricRepository().FindOne(context.Background(), specification.ByRunId{RunId: started.RunId})
	if err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}
	if metrics == nil {
		color.Yellow("No metrics recorded")
		return nil
	}
	fmt.Fprintf(out, "Lead time (days):  %.3f\n", metrics.LeadTimeDays)
	fmt.Fprintf(out, "False alarm rate:  %.3f\n", metrics.FalseAlarmRate)
	fmt.Fprintf(out, "Severity MAE:      %.3f\n", metrics.SeverityMAE)
	fmt.Fprintf(out, "Calibration Brier: %.3f\n", metrics.CalibrationBrier)
	return nil
}
