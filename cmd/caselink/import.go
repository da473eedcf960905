package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/caselink/internal/mail"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Reconcile one Outlook export file against the case collection",
	Long: `Parse an Outlook export JSON file and run the full reconciliation
pipeline: match emails to existing cases, auto-assign confident matches,
and create cases for unmatched threads.

Examples:
  caselink import export.json
  caselink import --config /etc/caselink/config.yaml export.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read export file: %w", err)
	}

	export, err := mail.ParseExport(content)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.matcher.Reconcile(cmd.Context(), export)
	if err != nil {
		return err
	}

	fmt.Printf("Emails:    %d\n", len(export.Emails))
	fmt.Printf("Assigned:  %d\n", len(report.Assigned))
	fmt.Printf("Suggested: %d\n", len(report.Suggested))
	fmt.Printf("Created:   %d\n", len(report.CreatedCases))
	fmt.Printf("Merged:    %d\n", report.MergedThreads)
	fmt.Printf("Skipped:   %d\n", report.Skipped)
	if len(report.Failed) > 0 {
		fmt.Printf("Failed:    %d\n", len(report.Failed))
		for _, f := range report.Failed {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", f.EmailID, f.Error)
		}
	}
	return nil
}
