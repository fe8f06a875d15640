package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/transport"
)

// errMissingURL is returned when the root command runs without a URL.
var errMissingURL = errors.New("missing required argument: url")

// NewRootCmd creates the root command, which mirrors the site at its URL
// argument.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemirror <url>",
		Short: "Mirror a single website to local storage",
		Long: `sitemirror copies a website to a local directory so it can be browsed offline.

Starting from the given URL it fetches pages breadth first, rewrites links
that point to the same host into host-relative links, stores every page and
image under <output>/<hostname>/ and follows same-site links until the depth
limit is reached. Paths disallowed by the site's robots.txt are never fetched.

Examples:
  # Mirror a whole site into ./example.com
  sitemirror https://example.com/

  # Mirror the root page and the pages it links to
  sitemirror -d 1 https://example.com/docs/

  # Four concurrent fetches per level, at most 500 URLs
  sitemirror -w 4 -p 500 https://example.com/

  # Markdown report written to a file
  sitemirror --report markdown --report-file report.md https://example.com/`,
		Args:          cobra.MaximumNArgs(1),
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRootCmd,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the root URL (-1 = unlimited)")
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Directory under which <hostname>/ is created")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of URLs attempted (0 = unlimited)")
	cmd.Flags().DurationP("timeout", "t", transport.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of URLs of the same depth fetched concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitemirror in current or home directory)")
	cmd.Flags().String("user-agent", transport.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().String("report", config.DefaultReportFormat,
		"Report format: text, json or markdown")
	cmd.Flags().String("report-file", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the crawl journal")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the crawl journal")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics in text format to this file")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not show the progress indicator")

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// runRootCmd mirrors the site named by the first argument. Without an
// argument it prints usage to stderr and fails.
func runRootCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		cmd.SetOut(cmd.ErrOrStderr())
		_ = cmd.Usage() //nolint:errcheck // the missing URL error is what matters
		return errMissingURL
	}
	return runMirrorCmd(cmd, args[0])
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
