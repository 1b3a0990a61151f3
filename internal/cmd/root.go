package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelops/hubsync/internal/config"
	"github.com/parcelops/hubsync/internal/observability"
	"github.com/parcelops/hubsync/internal/output"
)

var (
	cfgFile      string
	verbose      bool
	outputFormat string
	outPath      string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Rate-limited HubSpot CRM sync client",
	Long: `hubsync reads and writes HubSpot CRM records through a local dual-tier rate limiter.

Every request waits for a burst token and a daily token, retries 429 and 5xx responses,
and fails fast when the daily quota cannot recover in time.

Use the subcommands to perform specific operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context, which interrupts
// rate limit waits, retry sleeps and in-flight requests.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ExecuteContext(ctx)
}

// ExecuteContext runs the root command with ctx as the context of every subcommand.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/hubsync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output-format", "o", string(output.FormatTable), "Output format: table|json|yaml|markdown")
	rootCmd.PersistentFlags().StringVar(&outPath, "out", "", "Write output to a file (default stdout)")
}

// initConfig prepares the CLI logger. Configuration itself is loaded by the commands that talk
// to HubSpot, so version and help work without a config file or API key.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	if verbose {
		if path := cfgFile; path != "" {
			observability.CLILogger.Debug("Using config file", zap.String("path", path))
		} else if path := config.DefaultConfigPath(); path != "" {
			observability.CLILogger.Debug("Searching for config file", zap.String("path", path))
		}
	}
}
