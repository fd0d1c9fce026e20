package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"sentinel-be/internal/dataset"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Inspect case datasets",
}

var datasetValidateFlags struct {
	path string
}

var datasetValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a JSONL dataset parses and print per-country counts",
	RunE:  runDatasetValidate,
}

func init() {
	f := datasetValidateCmd.Flags()
	f.StringVar(&datasetValidateFlags.path, "path", os.Getenv("DATASET_PATH"), "JSONL dataset path (defaults to DATASET_PATH)")

	datasetCmd.AddCommand(datasetValidateCmd)
}

func runDatasetValidate(cmd *cobra.Command, _ []string) error {
	if datasetValidateFlags.path == "" {
		return fmt.Errorf("--path is required")
	}
	cases, err := dataset.LoadJSONL(datasetValidateFlags.path)
	if err != nil {
		color.Red("Invalid dataset %s", datasetValidateFlags.path)
		return err
	}

	byCountry := map[string]int{}
	outbreaks := 0
	for _, c := range cases {
		byCountry[c.Country]++
		if c.GroundTruth.TrueOutbreak {
			outbreaks++
		}
	}
	countries := make([]string, 0, len(byCountry))
	for k := range byCountry {
		countries = append(countries, k)
	}
	sort.Strings(countries)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COUNTRY\tCASES")
	for _, k := range countries {
		fmt.Fprintf(w, "%s\t%d\n", k, byCountry[k])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	color.Green("%d cases OK (%d labelled outbreaks)", len(cases), outbreaks)
	return nil
}
