// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hypecast/internal/config"
	"hypecast/internal/history"
	"hypecast/internal/httputil"
	"hypecast/internal/hypem"
	"hypecast/internal/media"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig      string
	flagCookieFile  string
	flagStrategy    string
	flagConcurrency int
	flagNoHistory   bool
	flagDebug       bool
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var cfg *config.Config

// logger writes to stderr so stdout stays clean for piping URLs.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "hypecast",
	Short: "Resolve Hype Machine tracks to playable hosting URLs",
	Long: `hypecast finds where a Hype Machine track is actually hosted.
It asks the site's redirect endpoint first and falls back to the
cookie-authenticated serve endpoint when the redirect is not usable.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight work.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/hypecast/config.toml)")
	pf.StringVar(&flagCookieFile, "cookie-file", "", "Read the session cookie from this file")
	pf.StringVar(&flagStrategy, "strategy", "", "Embedded JSON extraction: markers | dom")
	pf.IntVarP(&flagConcurrency, "concurrency", "c", 0, "Tracks resolved in parallel")
	pf.BoolVar(&flagNoHistory, "no-history", false, "Do not record resolutions in the history log")
	pf.BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(idCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration, then builds the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagCookieFile != "" {
		cfg.Auth.Cookie = ""
		cfg.Auth.CookieFile = flagCookieFile
	}
	if flagStrategy != "" {
		cfg.Scrape.Strategy = flagStrategy
	}
	if flagConcurrency != 0 {
		cfg.HTTP.Concurrency = flagConcurrency
	}
	if flagNoHistory {
		cfg.History = false
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err = buildLogger(cfg.LogLevel)
	return err
}

func buildLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zcfg.DisableStacktrace = zapLevel != zapcore.DebugLevel
	zcfg.Sampling = nil

	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

// newResolver wires the resolver from cfg. reg may be nil to skip metrics.
func newResolver(reg prometheus.Registerer) (*hypem.Resolver, *config.Credential, error) {
	cred, err := config.NewCredential(cfg.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("loading session cookie: %w", err)
	}
	if err := cred.Require(); err != nil {
		logger.Warn("No session cookie configured; only the redirect path can succeed",
			zap.String("hint", "set "+config.EnvCookie+" or auth.cookie_file"))
	}

	client := httputil.NewClient(cfg.HTTP.Timeout.Duration, cfg.HTTP.UserAgent).
		WithLimiter(httputil.NewLimiter(cfg.HTTP.RatePerSecond))

	opts := []hypem.Option{hypem.WithLogger(logger.Named("hypem"))}
	if reg != nil {
		opts = append(opts, hypem.WithMetrics(hypem.NewMetrics(reg)))
	}

	r, err := hypem.NewFromConfig(cfg, client, cred, opts...)
	if err != nil {
		return nil, nil, err
	}
	return r, cred, nil
}

// recordHistory appends traces with an identifier to the history log.
func recordHistory(traces ...hypem.Trace) {
	if !cfg.History {
		return
	}
	var entries []media.Resolution
	for _, t := range traces {
		if t.ID != "" {
			entries = append(entries, t.Resolution(time.Now()))
		}
	}
	if err := history.Append(entries...); err != nil {
		logger.Warn("Failed to record history", zap.Error(err))
	}
}
