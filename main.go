package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lmittmann/tint"

	"github.com/ogri-la/twowdb-fetch-go/src/cache"
	"github.com/ogri-la/twowdb-fetch-go/src/cli"
	"github.com/ogri-la/twowdb-fetch-go/src/config"
	httpClient "github.com/ogri-la/twowdb-fetch-go/src/http"
	"github.com/ogri-la/twowdb-fetch-go/src/listing"
	"github.com/ogri-la/twowdb-fetch-go/src/resolve"
	"github.com/ogri-la/twowdb-fetch-go/src/retry"
	"github.com/ogri-la/twowdb-fetch-go/src/store"
	"github.com/ogri-la/twowdb-fetch-go/src/twowdb"
)

var APP_VERSION = "unreleased"
var APP_LOC = "https://github.com/ogri-la/twowdb-fetch-go"

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func main() {
	flags, err := cli.ParseFlags(os.Args, os.Stderr)
	if err != nil {
		fatal("failed to parse flags", "error", err)
	}
	if flags.ShowHelp {
		os.Exit(0)
	}
	if flags.ShowVersion {
		fmt.Println(APP_VERSION)
		os.Exit(0)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: flags.LogLevel,
	})))

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		fatal("failed to load config", "config", flags.ConfigFile, "error", err)
	}
	flags.Apply(&cfg)

	cacheDir := cfg.CacheDir
	if !filepath.IsAbs(cacheDir) {
		cwd, err := os.Getwd()
		if err != nil {
			fatal("failed to get current working directory", "error", err)
		}
		cacheDir = filepath.Join(cwd, cacheDir)
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		fatal("failed to create cache directory", "error", err)
	}

	cacheConfig := cache.CacheConfig{
		Directory: cacheDir,
		ItemTTL:   cfg.ItemTTL(),
		SearchTTL: cfg.SearchTTL(),
	}

	// cache hits aren't paced, only requests that reach the site
	pacedTransport := httpClient.NewPacedTransport(http.DefaultTransport, cfg.RequestsPerSecond)
	cachingTransport := cache.NewFileCachingTransport(cacheConfig, pacedTransport)
	client := retry.NewClient(httpClient.NewRealHTTPClient(cachingTransport, userAgent(cfg.UserAgent)), cfg.RetryPolicy())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zones, err := resolve.LoadZones(cfg.ZonesFile)
	if err != nil {
		fatal("failed to load zones", "error", err)
	}
	zoneTable := resolve.NewZoneTable(zones)
	slog.Debug("zones loaded", "zones", zoneTable.Len(), "extra", len(zones))

	names := resolve.NewNameCache(twowdb.NameLookup(ctx, client, cfg.BaseURL))
	fetcher := twowdb.NewFetcher(client, cfg.BaseURL, listing.NewDecoder(names, zoneTable))
	handler := cli.NewCommandHandler(fetcher, store.New(cfg.DataDir), names, cfg.MaxWorkers)

	switch flags.SubCommand {
	case cli.SearchSubCommand:
		if err := handler.Search(ctx, flags.SearchConfig); err != nil {
			if errors.Is(err, twowdb.ErrQueryTooShort) {
				fatal("search query must be at least 2 characters", "query", flags.SearchConfig.Query)
			}
			fatal("search command failed", "error", err)
		}

	case cli.FetchSubCommand:
		if err := handler.Fetch(ctx, flags.FetchConfig); err != nil {
			fatal("fetch command failed", "error", err)
		}

	case cli.BulkSubCommand:
		report, err := handler.Bulk(ctx, flags.BulkConfig)
		if err != nil {
			fatal("bulk command failed", "error", err)
		}
		if report.Failed > 0 {
			os.Exit(1)
		}

	case cli.WriteSubCommand:
		if err := handler.Write(ctx, flags.WriteConfig); err != nil {
			fatal("write command failed", "error", err)
		}

	default:
		fatal("unknown subcommand", "subcommand", flags.SubCommand)
	}

	slog.Debug("done", "names-resolved", names.Len())
}

func userAgent(name string) string {
	return name + "/" + APP_VERSION + " (" + APP_LOC + ")"
}
