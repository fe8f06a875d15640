package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitemirror/internal/canon"
	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/crawler"
	"github.com/nao1215/sitemirror/internal/database"
	"github.com/nao1215/sitemirror/internal/log"
	"github.com/nao1215/sitemirror/internal/metrics"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/report"
	"github.com/nao1215/sitemirror/internal/robots"
	"github.com/nao1215/sitemirror/internal/store"
	"github.com/nao1215/sitemirror/internal/transport"
)

// runMirrorCmd builds the configuration for rawURL and mirrors the site.
func runMirrorCmd(cmd *cobra.Command, rawURL string) error {
	cfg, err := buildConfig(cmd, rawURL)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	root, err := canon.Absolute(cfg.Target)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", crawler.ErrInvalidRootURL, cfg.Target, err)
	}
	applySiteConfig(cmd, cfg, root)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runMirror(ctx, cmd, cfg, root, logger)
}

// buildConfig creates a Config from the root command's flags.
func buildConfig(cmd *cobra.Command, rawURL string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Target = rawURL
	cfg.Verbose = getVerboseFlag(cmd)

	flags := cmd.Flags()
	var err error
	if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.Quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	// An explicit --config must exist; a missing default file is fine.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		if cfg.SiteConfigs, err = config.LoadConfigFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return cfg, nil
}

// applySiteConfig merges the site file entry for root's host into cfg.
// Flags given on the command line keep their values.
func applySiteConfig(cmd *cobra.Command, cfg *config.Config, root *url.URL) {
	if cfg.SiteConfigs == nil {
		return
	}
	cfg.ApplySite(cfg.SiteConfigs.GetSiteConfig(root.Host), config.Overrides{
		MaxDepth:  cmd.Flags().Changed("max-depth"),
		MaxPages:  cmd.Flags().Changed("max-pages"),
		UserAgent: cmd.Flags().Changed("user-agent"),
	})
}

// runMirror wires the components together and runs one crawl.
func runMirror(ctx context.Context, cmd *cobra.Command, cfg *config.Config, root *url.URL, logger *slog.Logger) error {
	client, err := transport.NewClient(
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithProxy(cfg.ProxyAddress),
		transport.WithCookie(cfg.Site.Cookie),
		transport.WithHeaders(cfg.Site.Headers),
		transport.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	archiver := crawler.NewArchiver(
		client,
		robots.NewCache(client, robots.WithLogger(logger)),
		store.NewFS(cfg.OutputDir),
		crawler.WithArchiverLogger(logger),
	)

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithIgnorePatterns(cfg.Site.IgnorePatterns),
		crawler.WithFollowPatterns(cfg.Site.FollowPatterns),
		crawler.WithSpiderLogger(logger),
	}

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		recorder = metrics.NewRecorder(root.Host)
		spiderOpts = append(spiderOpts, crawler.WithPageHook(recorder.Observe))
	}

	var journal *database.Journal
	var runID int64
	if cfg.SaveToDB {
		journal, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open crawl journal: %w", err)
		}
		defer journal.Close()

		started := model.NewCrawlReport(root.String(), root.Hostname(), cfg.MaxDepth)
		started.OutputDir = cfg.OutputDir
		if runID, err = journal.BeginRun(ctx, started); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		spiderOpts = append(spiderOpts, crawler.WithPageHook(journalHook(journal, runID, logger)))
	}

	bar := newProgress(cmd.ErrOrStderr(), cfg.Quiet)
	spiderOpts = append(spiderOpts, crawler.WithPageHook(bar.observe))

	crawlReport, crawlErr := crawler.NewSpider(archiver, spiderOpts...).Crawl(ctx, root.String())
	bar.finish()
	if crawlReport == nil {
		return crawlErr
	}
	crawlReport.OutputDir = cfg.OutputDir
	if crawlReport.FinishedAt.IsZero() {
		crawlReport.FinishedAt = time.Now()
	}

	// The run is recorded even when it was interrupted.
	persistCtx := context.WithoutCancel(ctx)
	if journal != nil {
		if err := journal.FinishRun(persistCtx, runID, crawlReport); err != nil {
			logger.Warn("failed to finish journal run", "run", runID, "error", err)
		}
		if changes, err := compareWithPrevious(persistCtx, journal, runID, crawlReport); err != nil {
			logger.Warn("failed to compare with previous run", "error", err)
		} else if !cfg.Quiet {
			fmt.Fprintln(cmd.ErrOrStderr(), changes)
		}
	}
	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}
	if err := outputReport(cmd, cfg, crawlReport); err != nil {
		return errors.Join(crawlErr, fmt.Errorf("failed to write report: %w", err))
	}

	if crawlErr != nil {
		if errors.Is(crawlErr, context.Canceled) {
			return fmt.Errorf("mirror of %s interrupted: %w", root, crawlErr)
		}
		return fmt.Errorf("mirror of %s failed: %w", root, crawlErr)
	}
	return nil
}

// journalHook records every page of run runID. Failures are logged and do
// not stop the crawl.
func journalHook(journal *database.Journal, runID int64, logger *slog.Logger) crawler.PageHook {
	return func(ctx context.Context, page model.PageResult) {
		if err := journal.RecordPage(context.WithoutCancel(ctx), runID, page); err != nil {
			logger.Warn("failed to record page", "url", page.URL, "error", err)
		}
	}
}

// changeSummary counts stored pages against the previous run of the same URL.
type changeSummary struct {
	New       int
	Changed   int
	Unchanged int
}

func (c changeSummary) String() string {
	return fmt.Sprintf("Compared with previous runs: %d new, %d changed, %d unchanged", c.New, c.Changed, c.Unchanged)
}

// compareWithPrevious classifies the stored pages of a run by comparing their
// content hashes with the last journaled run that stored the same URL.
func compareWithPrevious(ctx context.Context, journal *database.Journal, runID int64, r *model.CrawlReport) (changeSummary, error) {
	var summary changeSummary
	for _, page := range r.Pages {
		if !page.Stored() {
			continue
		}
		prev, ok, err := journal.PreviousHash(ctx, page.URL, runID)
		if err != nil {
			return summary, err
		}
		switch {
		case !ok:
			summary.New++
		case prev != page.Hash:
			summary.Changed++
		default:
			summary.Unchanged++
		}
	}
	return summary, nil
}

// progress shows a spinner with the number of URLs attempted.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer, quiet bool) *progress {
	if quiet {
		return &progress{}
	}
	return &progress{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("mirroring"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("urls"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *progress) observe(_ context.Context, page model.PageResult) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("mirroring (depth %d)", page.Depth))
	_ = p.bar.Add(1) //nolint:errcheck // progress output is best effort
}

func (p *progress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish() //nolint:errcheck // progress output is best effort
}

// outputReport writes the report to --report-file or stdout.
func outputReport(cmd *cobra.Command, cfg *config.Config, r *model.CrawlReport) error {
	out := cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // reports are meant to be shared
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	if strings.EqualFold(cfg.ReportFormat, report.FormatText) || cfg.ReportFormat == "" {
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	} else {
		var err error
		if w, err = report.New(cfg.ReportFormat, out, getVersion()); err != nil {
			return err
		}
	}
	_, err := w.Write(r)
	return err
}
