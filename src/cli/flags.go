package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/ogri-la/twowdb-fetch-go/src/config"
	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

// SubCommand represents CLI subcommands
type SubCommand string

const (
	SearchSubCommand SubCommand = "search"
	FetchSubCommand  SubCommand = "fetch"
	BulkSubCommand   SubCommand = "bulk"
	WriteSubCommand  SubCommand = "write"
)

var KnownSubCommands = []SubCommand{SearchSubCommand, FetchSubCommand, BulkSubCommand, WriteSubCommand}

// Flags holds all CLI flags.
// DataDir and MaxWorkers are zero when not given and leave the config value alone.
type Flags struct {
	SubCommand   SubCommand
	LogLevel     slog.Level
	ConfigFile   string
	DataDir      string
	MaxWorkers   int
	SearchConfig SearchConfig
	FetchConfig  FetchConfig
	BulkConfig   BulkConfig
	WriteConfig  WriteConfig
	ShowHelp     bool
	ShowVersion  bool
}

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseFlags parses command line arguments, args[0] being the program name.
// Usage is written to `usage` when the arguments can't be used.
func ParseFlags(args []string, usage io.Writer) (*Flags, error) {
	flags := &Flags{}

	// global flags
	defaults := flag.NewFlagSet("twowdb-fetch", flag.ContinueOnError)
	defaults.SetOutput(io.Discard)
	defaults.BoolVarP(&flags.ShowHelp, "help", "h", false, "print this help and exit")
	defaults.BoolVarP(&flags.ShowVersion, "version", "V", false, "print program version and exit")
	defaults.StringVar(&flags.ConfigFile, "config", config.DefaultFile, "config file, merged with its '.local' file when present")
	defaults.StringVar(&flags.DataDir, "data-dir", "", "directory items and icons are saved to (default from config)")
	defaults.IntVar(&flags.MaxWorkers, "workers", 0, "number of concurrent downloads (default from config)")

	var logLevelStr string
	defaults.StringVar(&logLevelStr, "log-level", "info", "verbosity level. one of: debug, info, warn, error")

	var subcommand string
	rest := []string{}
	if len(args) > 1 {
		if strings.HasPrefix(args[1], "-") {
			rest = args[1:]
		} else {
			subcommand = args[1]
			rest = args[2:]
		}
	}

	var flagset *flag.FlagSet
	searchConfig := SearchConfig{}
	fetchConfig := FetchConfig{}
	bulkConfig := BulkConfig{}
	writeConfig := WriteConfig{}
	var minQualityStr string

	switch SubCommand(subcommand) {
	case SearchSubCommand:
		flagset = flag.NewFlagSet("search", flag.ContinueOnError)
		flagset.IntVar(&searchConfig.Page, "page", 1, "page of results to show")
		flagset.IntVar(&searchConfig.PerPage, "per-page", 10, "number of results per page")
		flagset.BoolVar(&searchConfig.SkipIcons, "skip-icons", false, "don't download icons for a direct match")
		flagset.AddFlagSet(defaults)

	case FetchSubCommand:
		flagset = flag.NewFlagSet("fetch", flag.ContinueOnError)
		flagset.BoolVar(&fetchConfig.SkipIcons, "skip-icons", false, "don't download item icons")
		flagset.AddFlagSet(defaults)

	case BulkSubCommand:
		flagset = flag.NewFlagSet("bulk", flag.ContinueOnError)
		flagset.StringVar(&bulkConfig.InputFile, "input", "-", "file of item names, one per line (default: stdin)")
		flagset.BoolVar(&bulkConfig.SkipIcons, "skip-icons", false, "don't download item icons")
		flagset.AddFlagSet(defaults)

	case WriteSubCommand:
		flagset = flag.NewFlagSet("write", flag.ContinueOnError)
		flagset.StringArrayVar(&writeConfig.OutputFiles, "out", []string{}, "write catalogue to file (default: stdout)")
		flagset.StringVar(&minQualityStr, "min-quality", "", "only include items of at least this quality, e.g. 'rare'")
		flagset.StringVar(&writeConfig.Slot, "slot", "", "only include items worn in this slot, e.g. 'Head'")
		flagset.AddFlagSet(defaults)

	default:
		flagset = defaults
	}
	flagset.SetOutput(io.Discard)

	if err := flagset.Parse(rest); err != nil {
		printUsage(usage, flagset)
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if flags.ShowHelp {
		printUsage(usage, flagset)
		return flags, nil
	}
	if flags.ShowVersion {
		return flags, nil
	}

	if subcommand == "" || !slices.Contains(KnownSubCommands, SubCommand(subcommand)) {
		printUsage(usage, flagset)
		return nil, fmt.Errorf("unknown subcommand: %s", subcommand)
	}

	logLevel, exists := logLevelMap[logLevelStr]
	if !exists {
		return nil, fmt.Errorf("unknown log level: %s", logLevelStr)
	}

	if flags.MaxWorkers < 0 {
		return nil, fmt.Errorf("--workers must be at least 1, got %d", flags.MaxWorkers)
	}

	positional := flagset.Args()

	switch SubCommand(subcommand) {
	case SearchSubCommand:
		searchConfig.Query = strings.TrimSpace(strings.Join(positional, " "))
		if searchConfig.Query == "" {
			return nil, errors.New("search needs a query, e.g. 'twowdb-fetch search linen'")
		}
		if searchConfig.Page < 1 {
			return nil, fmt.Errorf("--page must be at least 1, got %d", searchConfig.Page)
		}
		if searchConfig.PerPage < 1 {
			return nil, fmt.Errorf("--per-page must be at least 1, got %d", searchConfig.PerPage)
		}

	case FetchSubCommand:
		if len(positional) == 0 {
			return nil, errors.New("fetch needs at least one item id, e.g. 'twowdb-fetch fetch 19019'")
		}
		for _, arg := range positional {
			itemID, err := strconv.Atoi(arg)
			if err != nil || itemID < 1 {
				return nil, fmt.Errorf("invalid item id: %s", arg)
			}
			fetchConfig.ItemIDs = append(fetchConfig.ItemIDs, itemID)
		}

	case WriteSubCommand:
		if minQualityStr != "" {
			var quality types.Quality
			if err := quality.UnmarshalText([]byte(minQualityStr)); err != nil {
				return nil, fmt.Errorf("invalid --min-quality: %w", err)
			}
			writeConfig.MinQuality = &quality
		}
	}

	flags.SubCommand = SubCommand(subcommand)
	flags.LogLevel = logLevel
	flags.SearchConfig = searchConfig
	flags.FetchConfig = fetchConfig
	flags.BulkConfig = bulkConfig
	flags.WriteConfig = writeConfig

	return flags, nil
}

// Apply overrides configuration values with any flags that were given.
func (f *Flags) Apply(cfg *config.Config) {
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.MaxWorkers > 0 {
		cfg.MaxWorkers = f.MaxWorkers
	}
}

func printUsage(out io.Writer, flagset *flag.FlagSet) {
	fmt.Fprintln(out, "usage: twowdb-fetch <search|fetch|bulk|write> [options] [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  search <query>    Search items by name, fetching a direct match")
	fmt.Fprintln(out, "  fetch <id>...     Fetch and save items by id")
	fmt.Fprintln(out, "  bulk              Find, fetch and save a list of item names")
	fmt.Fprintln(out, "  write             Write a catalogue of saved items")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Options:")
	fmt.Fprint(out, flagset.FlagUsages())
}
