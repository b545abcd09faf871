package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jordanjoelson/ai-lead-gen/services"
)

var (
	scrapeQuery      string
	scrapeLocation   string
	scrapeMaxResults int
	scrapeEnrich     bool
	scrapeHunterKey  string
	scrapeFormat     string
	scrapeOut        string
	scrapeArchive    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape, optionally enrich it, and export the leads",
	Example: `  leadgen scrape --query dentists --location "Los Angeles, CA" --max-results 30
  leadgen scrape -q cafes -l Austin --enrich --format json --out austin-cafes`,
	RunE: runScrape,
}

func init() {
	f := scrapeCmd.Flags()
	f.StringVarP(&scrapeQuery, "query", "q", "", "business category to search for")
	f.StringVarP(&scrapeLocation, "location", "l", "", "city, region or address to search in")
	f.IntVarP(&scrapeMaxResults, "max-results", "n", 0, "maximum number of results (0 uses the configured default)")
	f.BoolVar(&scrapeEnrich, "enrich", false, "look up emails for leads with a website")
	f.StringVar(&scrapeHunterKey, "hunter-key", "", "Hunter.io API key (defaults to LEADGEN_HUNTER_API_KEY)")
	f.StringVar(&scrapeFormat, "format", "csv", "export format: csv or json")
	f.StringVarP(&scrapeOut, "out", "o", "", "export file name inside the output directory")
	f.BoolVar(&scrapeArchive, "archive", false, "also archive the leads to PostgreSQL")
	_ = scrapeCmd.MarkFlagRequired("query")
	_ = scrapeCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	if _, err := services.ParseFormat(scrapeFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("=== Lead scrape starting: %q in %q ===", scrapeQuery, scrapeLocation)
	a.logger.Info("Config: page size %d | delay %v-%v | retries %d | max results cap %d",
		a.cfg.PageSize, a.cfg.MinDelay(), a.cfg.MaxDelay(), a.cfg.MaxRetries, a.cfg.MaxResultsCap)

	sess, err := a.pipeline.StartScrape(ctx, services.ScrapeRequest{
		Query:      scrapeQuery,
		Location:   scrapeLocation,
		MaxResults: scrapeMaxResults,
	})
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	if scrapeEnrich {
		summary, err := a.enricher.Enrich(ctx, sess.ID, scrapeHunterKey)
		if err != nil {
			return fmt.Errorf("enrichment failed: %w", err)
		}
		if summary.Warning != "" {
			a.logger.Warn("Enrichment: %s", summary.Warning)
		}
	}

	artifact, err := a.exporter.Export(ctx, sess.ID, scrapeFormat)
	if err != nil {
		return err
	}
	path, err := a.exporter.Materialize(artifact, scrapeOut)
	if err != nil {
		return err
	}

	if scrapeArchive {
		n, err := a.exporter.Archive(ctx, sess.ID)
		if err != nil {
			a.logger.Error("Archive failed: %v", err)
		} else {
			a.logger.Info("Archived %d leads to PostgreSQL (table: leads)", n)
		}
	}

	final, err := a.store.Get(sess.ID)
	if err != nil {
		return err
	}
	a.summary.Print(cmd.OutOrStdout(), final, a.summary.Generate(final.Leads))
	fmt.Fprintf(cmd.OutOrStdout(), "  Done. %d leads -> %s\n\n", len(final.Leads), path)
	return nil
}
