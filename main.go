package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "leadgen",
	Short: "Scrape, enrich and export business leads",
	Long: `leadgen turns a business category and a location into a deduplicated,
validated lead list, optionally enriched with emails, exported as CSV or JSON.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
