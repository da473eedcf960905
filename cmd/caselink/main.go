// Package main implements the caselink CLI: the reconciliation server
// and one-shot maintenance commands over the case collection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file.
	configPath string

	// Version information (set via ldflags during build)
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "caselink",
	Short: "Email-to-case reconciliation for portfolio transfers",
	Long: `caselink reconciles Outlook email exports against a collection of
portfolio-transfer cases: it extracts policy numbers, customer names and
carriers from German insurance correspondence, assigns emails to existing
cases, creates cases for new requests, infers workflow status from
carrier replies and merges duplicate cases.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("caselink by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(mergeDuplicatesCmd)
	rootCmd.AddCommand(versionCmd)
}
