package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheldonkwok/dialga/internal/cache"
	"github.com/sheldonkwok/dialga/internal/config"
	"github.com/sheldonkwok/dialga/internal/logger"
	"github.com/sheldonkwok/dialga/internal/pipeline"
	"github.com/sheldonkwok/dialga/internal/scraper"
	"github.com/sheldonkwok/dialga/internal/server"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig  string
	flagFormat  string
	flagOutput  string
	flagRefresh bool
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dialga",
		Short: "Turn Pokemon GO news announcements into a calendar feed",
		Long: `dialga scrapes the Pokemon GO news site for event announcements,
extracts their date/time ranges, and produces an iCalendar feed.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&flagRefresh, "refresh", false, "Invalidate cached detail pages before running")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newScrapeCmd(), newCalendarCmd(), newServeCmd())

	return cmd
}

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run the pipeline and print resolved events",
		RunE:  runScrape,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "json", "Output format: json or text")
	return cmd
}

func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Run the pipeline and print the iCalendar document",
		RunE:  runCalendar,
	}
	cmd.Flags().StringVar(&flagOutput, "output", "", "Write the calendar to a file instead of stdout")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar feed and index page over HTTP",
		RunE:  runServe,
	}
}

// buildPipeline loads config and assembles the cache store and pipeline.
func buildPipeline() (*pipeline.Pipeline, *config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return nil, nil, err
		}
	}

	var store cache.Store
	switch cfg.Cache.Backend {
	case "memory":
		store = cache.NewMemory()
	case "sqlite":
		s, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		store = s
	default:
		return nil, nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}

	pipe := pipeline.New(store,
		pipeline.WithScraper(scraper.NewWithBaseURL(cfg.Scraper.BaseURL)),
		pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
		pipeline.WithDetailTTL(cfg.Cache.TTL),
	)

	if flagRefresh {
		if err := pipe.Refresh(); err != nil {
			return nil, nil, fmt.Errorf("refreshing cache: %w", err)
		}
	}
	return pipe, cfg, nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	format := OutputFormat(flagFormat)
	if format != FormatJSON && format != FormatText {
		return fmt.Errorf("invalid format: %s (must be 'json' or 'text')", flagFormat)
	}

	pipe, _, err := buildPipeline()
	if err != nil {
		return err
	}

	events, err := pipe.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	return WriteOutput(os.Stdout, events, format)
}

func runCalendar(cmd *cobra.Command, args []string) error {
	pipe, _, err := buildPipeline()
	if err != nil {
		return err
	}

	ics, err := pipe.Calendar(cmd.Context())
	if err != nil {
		return fmt.Errorf("generating calendar: %w", err)
	}

	if flagOutput != "" {
		if err := os.WriteFile(flagOutput, []byte(ics), 0o644); err != nil {
			return fmt.Errorf("writing calendar: %w", err)
		}
		return nil
	}

	fmt.Print(ics)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	pipe, cfg, err := buildPipeline()
	if err != nil {
		return err
	}

	srv := server.New(
		cfg.Server.ListenAddress,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		cfg.Server.IdleTimeout,
		pipe,
	)
	return srv.ListenAndServe()
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
