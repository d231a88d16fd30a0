package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/phishsmith/internal/config"
	"github.com/amosWeiskopf/phishsmith/internal/logging"
	"github.com/amosWeiskopf/phishsmith/pkg/analyzer"
	"github.com/amosWeiskopf/phishsmith/pkg/capture"
	"github.com/amosWeiskopf/phishsmith/pkg/detector"
	"github.com/amosWeiskopf/phishsmith/pkg/domain"
	"github.com/amosWeiskopf/phishsmith/pkg/references"
	"github.com/amosWeiskopf/phishsmith/pkg/visual"
)

var appConfig *config.Config

// setup loads .env and configuration and attaches the logger to the command
// context.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Storage.Path = output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg

	logger := logging.New(cfg.Logging, os.Stderr)
	cmd.SetContext(logger.WithContext(cmd.Context()))
	return nil
}

func openReferences(ctx context.Context) (references.Store, error) {
	rc := appConfig.References
	if rc.Type == "s3" {
		s, err := references.NewS3Store(ctx, rc.Bucket, rc.Prefix, rc.Region)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return references.NewFileStore(rc.Path), nil
}

func newBrowser(ctx context.Context) *capture.Browser {
	cc := appConfig.Capture
	return capture.NewBrowser(ctx, capture.Options{
		Timeout:      cc.Timeout,
		SettleDelay:  cc.SettleDelay,
		WindowWidth:  cc.WindowWidth,
		WindowHeight: cc.WindowHeight,
		UserAgent:    cc.UserAgent,
		Headless:     cc.Headless,
	})
}

// newDetector captures any missing references, loads the reference set and
// builds a detector backed by a headless browser. The returned func closes
// the browser.
func newDetector(ctx context.Context) (*detector.Detector, func(), error) {
	logger := zerolog.Ctx(ctx)

	refStore, err := openReferences(ctx)
	if err != nil {
		return nil, nil, err
	}
	browser := newBrowser(ctx)

	if _, allGood, err := references.Check(ctx, refStore, appConfig.KnownBanks); err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("reference check failed: %w", err)
	} else if !allGood {
		logger.Info().Msg("capturing missing reference screenshots")
		if err := references.Capture(ctx, browser, refStore, appConfig.KnownBanks, appConfig.Capture.ElementsHeight, false); err != nil {
			logger.Warn().Err(err).Msg("some references could not be captured")
		}
	}

	brands, err := references.Load(ctx, refStore, appConfig.KnownBanks)
	if err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("failed to load references: %w", err)
	}

	workers := appConfig.Workers.MaxWorkers
	d := detector.New(browser, brands,
		detector.WithDomainAnalyzer(domain.New(brands,
			domain.WithWeights(appConfig.Detection.DomainWeights),
			domain.WithSuspiciousTLDs(appConfig.Detection.SuspiciousTLDs),
		)),
		detector.WithVisualAnalyzer(visual.New(visual.DefaultExtractor(), visual.WithMaxWorkers(workers))),
		detector.WithFusion(analyzer.NewWithConfig(appConfig.Detection.Fusion())),
		detector.WithMaxWorkers(workers),
	)
	return d, browser.Close, nil
}

// formatFromPath picks a report format from a file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "html"
	case ".md", ".markdown":
		return "markdown"
	case ".json":
		return "json"
	default:
		return "text"
	}
}
