// Package main is the entry point for the frkr mirroring proxy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/frkr-io/frkr-mirror/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	listenAddr  string
	upstream    string
	logLevel    string
	logFormat   string
	metricsAddr string
	showVersion bool
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(flags.configPath, logger)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	app, err := newApplication(cfg, flags, logger)
	if err != nil {
		logger.Fatal("failed to initialize mirror", observability.Error(err))
	}

	if err := run(context.Background(), app, logger); err != nil {
		logger.Fatal("mirror proxy failed", observability.Error(err))
	}
}

// parseFlags parses command line flags. Every flag falls back to a
// FRKR_MIRROR_* environment variable.
func parseFlags(args []string) (cliFlags, error) {
	var flags cliFlags

	fs := flag.NewFlagSet("frkr-mirror", flag.ContinueOnError)
	fs.StringVar(&flags.configPath, "config", getEnvOrDefault("FRKR_MIRROR_CONFIG", ""),
		"Path to configuration file (optional, FRKR_* variables are used otherwise)")
	fs.StringVar(&flags.listenAddr, "listen", getEnvOrDefault("FRKR_MIRROR_LISTEN", ":8080"),
		"Address the mirroring proxy listens on")
	fs.StringVar(&flags.upstream, "upstream", getEnvOrDefault("FRKR_MIRROR_UPSTREAM", ""),
		"URL of the application the proxy forwards to")
	fs.StringVar(&flags.logLevel, "log-level", getEnvOrDefault("FRKR_MIRROR_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	fs.StringVar(&flags.logFormat, "log-format", getEnvOrDefault("FRKR_MIRROR_LOG_FORMAT", "json"),
		"Log format (json, console)")
	fs.StringVar(&flags.metricsAddr, "metrics-addr", getEnvOrDefault("FRKR_MIRROR_METRICS_ADDR", ":9090"),
		"Address of the metrics server, empty to disable")
	fs.BoolVar(&flags.showVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	return flags, nil
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "frkr-mirror version %s\n", version)
	_, _ = fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	_, _ = fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}
