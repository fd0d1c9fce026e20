package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "sentinel",
	Short:        "Operator tool for the SENTINEL outbreak scoring pipeline",
	Long:         "sentinel runs the scoring pipeline in-process, inspects stored runs,\nexports them to SQLite and tails live run events from NATS.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var dsn string

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "db", os.Getenv("DB_CONNECTION_STRING"), "Postgres DSN (defaults to DB_CONNECTION_STRING)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
