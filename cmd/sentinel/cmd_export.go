package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"sentinel-be/pkg/archive"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportFlags struct {
	runId string
	out   string
	force bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy every row of a run into a standalone SQLite file",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.runId, "run", "", "run ID (required)")
	f.StringVarP(&exportFlags.out, "out", "o", "", "destination SQLite file (required)")
	f.BoolVar(&exportFlags.force, "force", false, "overwrite an existing destination")
	_ = exportCmd.MarkFlagRequired("run")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(exportFlags.out); err == nil {
		if !exportFlags.force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", exportFlags.out)
		}
		if err := os.Remove(exportFlags.out); err != nil {
			return err
		}
	}

	uowFactory, err := openStore(false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	bundle, err := archive.Collect(ctx, uowFactory.NewUnitOfWork(ctx), exportFlags.runId)
	if err != nil {
		return err
	}
	if err := archive.Write(ctx, exportFlags.out, bundle); err != nil {
		return err
	}

	rows := bundle.Rows()
	tables := make([]string, 0, len(rows))
	for t := range rows {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS")
	for _, t := range tables {
		fmt.Fprintf(w, "%s\t%d\n", t, rows[t])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	color.Green("Exported run %s to %s", exportFlags.runId, exportFlags.out)
	return nil
}
