package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mergeDuplicatesCmd = &cobra.Command{
	Use:   "merge-duplicates",
	Short: "Find duplicate cases and merge each group onto its oldest case",
	Long: `Scan the case collection for cases that describe the same transfer
request (same policy number, or same customer with the same broker or
carrier) and merge each group onto its oldest case. Messages are
reattached, notes concatenated, and the newer duplicates deleted.`,
	RunE: runMergeDuplicates,
}

func runMergeDuplicates(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.matcher.MergeDuplicates(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Duplicate groups: %d\n", report.GroupsFound)
	fmt.Printf("Cases merged:     %d\n", report.MergedInto)
	fmt.Printf("Cases deleted:    %d\n", report.Deleted)
	return nil
}
