package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel-be/pkg/events"
	pktNats "sentinel-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	url   string
	runId string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail run events published to NATS",
	RunE:  runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.url, "nats", os.Getenv("NATS_URL"), "NATS server URL (defaults to NATS_URL)")
	f.StringVar(&watchFlags.runId, "run", "", "only show events for this run")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if watchFlags.url == "" {
		return fmt.Errorf("a NATS URL is required: pass --nats or set NATS_URL")
	}
	sub, err := pktNats.NewSubscriber(watchFlags.url)
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	cc, err := sub.Subscribe(ctx, pktNats.SubjectPrefix+".>", "", func(_ context.Context, e events.Event) error {
		if line := formatEvent(e, watchFlags.runId); line != "" {
			fmt.Fprintln(out, line)
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer cc.Stop()

	color.Cyan("Watching %s.> on %s (Ctrl-C to stop)", pktNats.SubjectPrefix, watchFlags.url)
	<-ctx.Done()
	return nil
}

// formatEvent renders one event line, or "" when it belongs to another run.
func formatEvent(e events.Event, runFilter string) string {
	p := e.Payload()
	runId, _ := p["run_id"].(string)
	if runFilter != "" && runId != runFilter {
		return ""
	}
	status, _ := p["status"].(string)
	line := fmt.Sprintf("%s %-14s run=%s status=%s processed=%v/%v",
		e.Timestamp().UTC().Format(time.RFC3339), e.EventType(), runId, statusLabel(status), p["processed"], p["total"])
	if caseId, ok := p["case_id"].(string); ok && caseId != "" {
		line += " case=" + caseId
	}
	if msg, ok := p["error"].(string); ok && msg != "" {
		line += " error=" + color.RedString(msg)
	}
	return line
}
