package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/crawler"
	"github.com/amosWeiskopf/phishsmith/pkg/domain"
	"github.com/amosWeiskopf/phishsmith/pkg/references"
	"github.com/amosWeiskopf/phishsmith/pkg/reporter"
	"github.com/amosWeiskopf/phishsmith/pkg/store"
	"github.com/amosWeiskopf/phishsmith/pkg/utils"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "phishsmith",
	Short: "PhishSmith - bank phishing site detector",
	Long: `PhishSmith scores candidate URLs against a registry of known banks
by domain lookalike analysis and visual similarity of rendered pages.`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [URL...]",
	Short: "Analyze one or more URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze URLs listed in a file, one per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open URL list: %w", err)
		}
		defer f.Close()

		urls, err := utils.ReadURLList(f)
		if err != nil {
			return fmt.Errorf("failed to read URL list: %w", err)
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs in %s", path)
		}
		return runBatch(cmd, urls)
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [SEED...]",
	Short: "Discover and analyze candidate pages starting from seed URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		seeds := args
		if len(seeds) == 0 {
			seeds = appConfig.Crawler.Seeds
		}
		maxPages, _ := cmd.Flags().GetInt("max-pages")

		d, closeFn, err := newDetector(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		opts := appConfig.Crawler.CrawlerOptions()
		if maxPages > 0 {
			opts.MaxPages = maxPages
		}
		result, crawlErr := d.Crawl(ctx, crawler.New(opts), seeds)
		if result == nil {
			return fmt.Errorf("crawl failed: %w", crawlErr)
		}

		fmt.Printf("Crawled from %d seeds: %d analyzed, %d pages fetched, %d skipped, %d errors in %s\n",
			len(seeds), len(result.Outcomes), result.Visited, result.Skipped, result.ErrorCount,
			result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
		if err := finish(cmd, result.Outcomes); err != nil {
			return err
		}
		return crawlErr
	},
}

var domainCmd = &cobra.Command{
	Use:   "domain [URL...]",
	Short: "Run only the domain lookalike analysis",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := domain.New(appConfig.KnownBanks,
			domain.WithWeights(appConfig.Detection.DomainWeights),
			domain.WithSuspiciousTLDs(appConfig.Detection.SuspiciousTLDs),
		)
		data, err := json.MarshalIndent(a.AnalyzeBatch(args), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var referencesCmd = &cobra.Command{
	Use:   "references",
	Short: "Manage reference screenshots of known banks",
}

var referencesCaptureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture missing reference screenshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")

		refStore, err := openReferences(ctx)
		if err != nil {
			return err
		}
		browser := newBrowser(ctx)
		defer browser.Close()

		if err := references.Capture(ctx, browser, refStore, appConfig.KnownBanks, appConfig.Capture.ElementsHeight, force); err != nil {
			return fmt.Errorf("reference capture incomplete: %w", err)
		}
		fmt.Printf("References captured for %d banks\n", len(appConfig.KnownBanks))
		return nil
	},
}

var referencesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report which reference screenshots exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		refStore, err := openReferences(ctx)
		if err != nil {
			return err
		}

		statuses, allGood, err := references.Check(ctx, refStore, appConfig.KnownBanks)
		if err != nil {
			return fmt.Errorf("reference check failed: %w", err)
		}
		for _, st := range statuses {
			fmt.Printf("%-8s", st.ShortName)
			for _, v := range models.Variants {
				mark := "missing"
				if st.Variants[v] {
					mark = "ok"
				}
				fmt.Printf("  %s=%s", v, mark)
			}
			fmt.Println()
		}
		if !allGood {
			return fmt.Errorf("some reference screenshots are missing; run `phishsmith references capture`")
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a report from stored results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input, _ := cmd.Flags().GetString("input")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("report")

		var s store.Store = store.NewFileStore(input)
		if input == "" {
			var err error
			if s, err = store.Open(appConfig.Storage.Type, appConfig.Storage.Path); err != nil {
				return err
			}
		}
		defer s.Close()

		outcomes, err := s.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load results: %w", err)
		}
		return writeReport(outcomes, format, output)
	},
}

func init() {
	// Batch command flags
	batchCmd.Flags().String("file", "", "File with one URL per line")
	batchCmd.MarkFlagRequired("file")

	// Crawl command flags
	crawlCmd.Flags().Int("max-pages", 0, "Maximum pages to analyze (overrides config)")

	// References command flags
	referencesCaptureCmd.Flags().Bool("force", false, "Recapture references that already exist")
	referencesCmd.AddCommand(referencesCaptureCmd)
	referencesCmd.AddCommand(referencesCheckCmd)

	// Report command flags
	reportCmd.Flags().String("input", "", "Results JSON file (defaults to configured storage)")

	// Add commands to root
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(domainCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(reportCmd)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("output", "", "Results file (overrides storage.path)")
	rootCmd.PersistentFlags().String("report", "", "Also write a report to this file")
	rootCmd.PersistentFlags().String("format", "", "Report format (json, html, markdown, text)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runBatch analyzes urls and persists the outcomes.
func runBatch(cmd *cobra.Command, urls []string) error {
	ctx := cmd.Context()
	d, closeFn, err := newDetector(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	return finish(cmd, d.AnalyzeBatch(ctx, urls))
}

// finish stores outcomes, prints the console summary and writes the optional
// report file.
func finish(cmd *cobra.Command, outcomes []models.Outcome) error {
	ctx := cmd.Context()
	s, err := store.Open(appConfig.Storage.Type, appConfig.Storage.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Save(ctx, outcomes); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	summary, err := reporter.New(appConfig.Detection.SuspiciousConfidence).GenerateReport(outcomes, "text")
	if err != nil {
		return err
	}
	fmt.Print(summary)
	fmt.Printf("Results saved to %s\n", appConfig.Storage.Path)

	output, _ := cmd.Flags().GetString("report")
	if output == "" {
		return nil
	}
	format, _ := cmd.Flags().GetString("format")
	return writeReport(outcomes, format, output)
}

// writeReport renders outcomes and writes them to output, or stdout when
// output is empty.
func writeReport(outcomes []models.Outcome, format, output string) error {
	if format == "" {
		format = formatFromPath(output)
	}
	report, err := reporter.New(appConfig.Detection.SuspiciousConfidence).GenerateReport(outcomes, format)
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}

	if output == "" {
		fmt.Println(report)
		return nil
	}
	if err := os.WriteFile(output, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report saved to %s\n", output)
	return nil
}
