// Command reliquary runs the self-hosted multi-protocol artifact repository
// server, and offers a reindex subcommand to reconcile the Catalog Store
// against the on-disk repository tree.
//
// Usage:
//
//	reliquary [command] [flags]
//
// Commands:
//
//	serve      Start the HTTP server (default if no command given)
//	reindex    Reconcile the catalog against reliquary.location
//
// Serve Flags:
//
//	-config string
//	      Path to configuration file (YAML or JSON)
//	-listen string
//	      Address to listen on (default ":8080")
//	-base-url string
//	      Public URL of this server (default "http://localhost:8080")
//	-location string
//	      Path to the relic storage root
//	-database-driver string
//	      Database driver: sqlite or postgres (default "sqlite")
//	-database-path string
//	      Path to SQLite database file (default "./reliquary.db")
//	-database-url string
//	      PostgreSQL connection URL
//	-log-level string
//	      Log level: debug, info, warn, error (default "info")
//	-log-format string
//	      Log format: text, json (default "text")
//
// Reindex takes a config file path as its first positional argument; any
// further arguments are ignored. It exits 2 if no config path is given,
// matching the original
// zombified/reliquary reindex script's config_uri contract.
//
// Environment Variables:
//
//	RELIQUARY_LISTEN, RELIQUARY_BASE_URL, RELIQUARY_RELIQUARY_LOCATION,
//	RELIQUARY_RELIQUARY_REALM, RELIQUARY_RELIQUARY_AUTH,
//	RELIQUARY_RELIQUARY_XSENDFILE_ENABLED, RELIQUARY_RELIQUARY_XSENDFILE_FRONTEND,
//	RELIQUARY_DATABASE_DRIVER, RELIQUARY_DATABASE_PATH, RELIQUARY_DATABASE_URL,
//	RELIQUARY_LOG_LEVEL, RELIQUARY_LOG_FORMAT
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/config"
	"github.com/zombified/reliquary/internal/reindex"
	"github.com/zombified/reliquary/internal/server"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Commit is set at build time.
	Commit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
			runServe()
			return
		case "reindex":
			os.Args = append(os.Args[:1], os.Args[2:]...)
			os.Exit(runReindex())
		case "-version", "--version":
			fmt.Printf("reliquary %s (%s)\n", Version, Commit)
			os.Exit(0)
		case "-h", "-help", "--help":
			printUsage()
			os.Exit(0)
		}
	}

	runServe()
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `reliquary - self-hosted multi-protocol artifact repository

Usage: reliquary [command] [flags]

Commands:
  serve      Start the HTTP server (default)
  reindex    Reconcile the catalog against reliquary.location

Run 'reliquary <command> -help' for more information on a command.

Global Flags:
  -version   Print version and exit
  -help      Show this help message
`)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (YAML or JSON)")
	listen := fs.String("listen", "", "Address to listen on")
	baseURL := fs.String("base-url", "", "Public URL of this server")
	location := fs.String("location", "", "Path to the relic storage root")
	databaseDriver := fs.String("database-driver", "", "Database driver: sqlite or postgres")
	databasePath := fs.String("database-path", "", "Path to SQLite database file")
	databaseURL := fs.String("database-url", "", "PostgreSQL connection URL")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "", "Log format: text, json")
	version := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "reliquary - self-hosted multi-protocol artifact repository\n\n")
		fmt.Fprintf(os.Stderr, "Usage: reliquary serve [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[1:])

	if *version {
		fmt.Printf("reliquary %s (%s)\n", Version, Commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	cfg.LoadFromEnv()

	if *listen != "" {
		cfg.Listen = *listen
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *location != "" {
		cfg.Reliquary.Location = *location
	}
	if *databaseDriver != "" {
		cfg.Database.Driver = *databaseDriver
	}
	if *databasePath != "" {
		cfg.Database.Path = *databasePath
	}
	if *databaseURL != "" {
		cfg.Database.URL = *databaseURL
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// runReindex mirrors the original reindex script's config_uri contract: a
// missing positional config path logs an error and returns 2, never 1.
func runReindex() int {
	logger := slog.Default()

	fs := flag.NewFlagSet("reindex", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reliquary reindex <config-file>\n\n")
		fmt.Fprintf(os.Stderr, "Reindex reliquary storage.\n")
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}

	args := fs.Args()
	if len(args) < 1 {
		logger.Error("at least the config uri is needed")
		return 2
	}
	configPath := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		return 1
	}
	cfg.LoadFromEnv()

	driver := cfg.Database.Driver
	dsn := cfg.Database.Path
	if driver == "postgres" {
		dsn = cfg.Database.URL
	}
	db, err := catalog.Open(driver, dsn)
	if err != nil {
		logger.Error("opening catalog", "error", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	rx := reindex.New(db, cfg.Reliquary.Location, logger)
	stats, err := rx.Run()
	if err != nil {
		logger.Error("reindex failed", "error", err)
		return 1
	}

	logger.Info("reindex complete",
		"channels", stats.ChannelsSeen,
		"indices", stats.IndicesSeen,
		"relics", stats.RelicsSeen,
		"deb_infos", stats.DebInfosSet,
		"ambiguous", stats.Ambiguous,
		"deleted", stats.Deleted)
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Default(), nil
}

func setupLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
