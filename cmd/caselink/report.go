package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/caselink/internal/report"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a summary report of the case collection",
	Long: `Print the case collection as a text summary, or export it as CSV or
JSON to stdout.

Examples:
  caselink report
  caselink report --format csv > cases.csv
  caselink report --format json > cases.json`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "output format: text, csv or json")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	r := report.New(a.store)

	switch reportFormat {
	case "text":
		text, err := r.Text(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	case "csv":
		return r.WriteCSV(cmd.Context(), os.Stdout)
	case "json":
		return r.WriteJSON(cmd.Context(), os.Stdout)
	default:
		return fmt.Errorf("unknown report format %q (must be text, csv or json)", reportFormat)
	}
}
