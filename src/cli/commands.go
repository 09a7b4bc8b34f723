package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ogri-la/twowdb-fetch-go/src/catalogue"
	"github.com/ogri-la/twowdb-fetch-go/src/resolve"
	"github.com/ogri-la/twowdb-fetch-go/src/store"
	"github.com/ogri-la/twowdb-fetch-go/src/twowdb"
	"github.com/ogri-la/twowdb-fetch-go/src/types"
	"github.com/ogri-la/twowdb-fetch-go/src/validation"
)

// SearchConfig holds configuration for searching
type SearchConfig struct {
	Query     string
	Page      int
	PerPage   int
	SkipIcons bool
}

// FetchConfig holds configuration for fetching items by id
type FetchConfig struct {
	ItemIDs   []int
	SkipIcons bool
}

// BulkConfig holds configuration for fetching a list of item names
type BulkConfig struct {
	InputFile string
	SkipIcons bool
}

// WriteConfig holds configuration for writing catalogues
type WriteConfig struct {
	OutputFiles []string
	MinQuality  *types.Quality
	Slot        string
}

// BulkReport counts what happened to each name in a bulk fetch.
type BulkReport struct {
	Requested int
	Saved     int
	NotFound  int
	Ambiguous int
	Failed    int
}

// CommandHandler handles CLI commands
type CommandHandler struct {
	fetcher *twowdb.Fetcher
	store   *store.Store
	names   *resolve.NameCache
	builder *catalogue.Builder
	workers int
	icons   singleflight.Group

	in    io.Reader
	out   io.Writer
	outMu sync.Mutex
}

// NewCommandHandler creates a new command handler reading from stdin and writing to stdout.
// `names` may be nil, otherwise the names of fetched items are added to it.
func NewCommandHandler(fetcher *twowdb.Fetcher, store *store.Store, names *resolve.NameCache, workers int) *CommandHandler {
	return &CommandHandler{
		fetcher: fetcher,
		store:   store,
		names:   names,
		builder: catalogue.NewBuilder(),
		workers: max(workers, 1),
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// print writes to the output in one piece so concurrent fetches don't interleave.
func (h *CommandHandler) print(s string) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	fmt.Fprint(h.out, s)
}

// Search executes the search command.
// A direct match is fetched and saved, otherwise a page of results is printed as a table.
func (h *CommandHandler) Search(ctx context.Context, config SearchConfig) error {
	slog.Info("searching", "query", config.Query)

	results, err := h.fetcher.Search(ctx, config.Query)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		h.print("No items found.\n")
		return nil
	}

	if results[0].Direct {
		h.print(fmt.Sprintf("Direct match found! ID: %d\n", results[0].ID))
		_, err := h.fetchAndSave(ctx, results[0].ID, twowdb.DirectMatchName, config.SkipIcons)
		return err
	}

	total := len(results)
	start := (config.Page - 1) * config.PerPage
	if start >= total {
		pages := (total + config.PerPage - 1) / config.PerPage
		return fmt.Errorf("page %d is out of range, %d results over %d page(s)", config.Page, total, pages)
	}
	end := min(start+config.PerPage, total)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(h.out)
	t.AppendHeader(table.Row{"#", "Name", "Quality", "ID"})
	for i, result := range results[start:end] {
		t.AppendRow(table.Row{start + i + 1, result.Name, result.Quality.String(), result.ID})
	}

	h.outMu.Lock()
	defer h.outMu.Unlock()
	t.Render()
	fmt.Fprintf(h.out, "Showing %d-%d of %d\n", start+1, end, total)
	if end < total {
		fmt.Fprintf(h.out, "%d more, see --page %d\n", total-end, config.Page+1)
	}
	return nil
}

// Fetch executes the fetch command.
// Every item is attempted, the errors of those that failed are returned together.
func (h *CommandHandler) Fetch(ctx context.Context, config FetchConfig) error {
	var errs []error
	for _, itemID := range config.ItemIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := h.fetchAndSave(ctx, itemID, fmt.Sprintf("item %d", itemID), config.SkipIcons); err != nil {
			slog.Error("failed to fetch item", "item-id", itemID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fetchAndSave downloads an item, saves it with its icon and prints a summary of it.
// A missing icon is not an error.
func (h *CommandHandler) fetchAndSave(ctx context.Context, itemID int, hint string, skipIcons bool) (string, error) {
	slog.Info("fetching", "item-id", itemID, "name", hint)

	record, err := h.fetcher.FetchItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	if h.names != nil {
		h.names.Put(record.ID, record.Name)
	}

	path, err := h.store.SaveItem(record)
	if err != nil {
		return "", err
	}

	if !skipIcons && !h.store.HasIcon(record.Icon) {
		if err := h.saveIcon(ctx, record.Icon); err != nil {
			slog.Warn("failed to save icon", "item-id", itemID, "icon", record.Icon, "error", err)
		}
	}

	h.print(Summary(record) + fmt.Sprintf("Saved to: %s\n", path))
	return path, nil
}

// saveIcon downloads and saves an icon once, however many workers ask for it at the same time.
func (h *CommandHandler) saveIcon(ctx context.Context, icon string) error {
	_, err, _ := h.icons.Do(strings.ToLower(icon), func() (any, error) {
		if h.store.HasIcon(icon) {
			return nil, nil
		}
		data, err := h.fetcher.FetchIcon(ctx, icon)
		if err != nil {
			return nil, err
		}
		_, err = h.store.SaveIcon(icon, data)
		return nil, err
	})
	return err
}

// Summary is a short human readable description of an item and its first known source.
func Summary(record types.ItemRecord) string {
	var b strings.Builder
	rule := strings.Repeat("-", 40)
	details := record.Details

	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s (%s)\n", record.Name, details.Quality)
	if line := strings.TrimSpace(details.Slot + " " + details.ArmorType); line != "" {
		fmt.Fprintf(&b, "   %s\n", line)
	}
	if len(details.Stats) > 0 {
		fmt.Fprintf(&b, "   Stats: %s\n", formatStats(details.Stats))
	}
	fmt.Fprintln(&b, rule)
	b.WriteString(sourceLine(record.Sources))
	return b.String()
}

func formatStats(stats map[string]int) string {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", key, stats[key]))
	}
	return strings.Join(parts, ", ")
}

// sourceLine describes the first entry of the first non-empty listing,
// in order: dropped by, created by, sold by, quest reward.
func sourceLine(sources map[string][]types.ListingEntry) string {
	if entries := sources[types.DroppedByListing.Key()]; len(entries) > 0 {
		entry := entries[0]
		zone := ""
		if entry.Zone != nil {
			zone = " in " + entry.Zone.Name
		}
		rate := entry.DropRate
		if rate == "" {
			rate = "?"
		}
		return fmt.Sprintf("Drops from: %s%s (%s)\n", entry.Name, zone, rate)
	}

	if entries := sources[types.CreatedByListing.Key()]; len(entries) > 0 {
		line := fmt.Sprintf("Created by: %s\n", entries[0].Name)
		if len(entries[0].Reagents) > 0 {
			reagents := make([]string, 0, len(entries[0].Reagents))
			for _, reagent := range entries[0].Reagents {
				reagents = append(reagents, fmt.Sprintf("%dx %s", reagent.Count, reagent.Name))
			}
			line += "   Reagents: " + strings.Join(reagents, ", ") + "\n"
		}
		return line
	}

	if entries := sources[types.SoldByListing.Key()]; len(entries) > 0 {
		return fmt.Sprintf("Sold by: %s\n", entries[0].Name)
	}

	if entries := sources[types.RewardFromQuestListing.Key()]; len(entries) > 0 {
		return fmt.Sprintf("Quest reward: %s\n", entries[0].Name)
	}

	return ""
}

// ReadNames reads item names one per line until the end of input or a line reading "END".
// Blank lines are skipped.
func ReadNames(r io.Reader) ([]string, error) {
	names := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "END" {
			break
		}
		if line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read item names: %w", err)
	}
	return names, nil
}

// MatchOutcome is the result of picking an item for a name from its search results.
type MatchOutcome int

const (
	Matched MatchOutcome = iota
	NoResults
	Ambiguous
)

// MatchName picks the result whose name equals `name` ignoring case,
// else the only result when there is exactly one.
func MatchName(name string, results []types.SearchResult) (types.SearchResult, MatchOutcome) {
	for _, result := range results {
		if strings.EqualFold(result.Name, name) {
			return result, Matched
		}
	}
	switch len(results) {
	case 0:
		return types.SearchResult{}, NoResults
	case 1:
		return results[0], Matched
	default:
		return types.SearchResult{}, Ambiguous
	}
}

// Closest returns the result whose name is most similar to `name` and its Jaro-Winkler similarity.
func Closest(name string, results []types.SearchResult) (types.SearchResult, float64) {
	var best types.SearchResult
	bestScore := -1.0
	for _, result := range results {
		score := matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(result.Name), false)
		if score > bestScore {
			best, bestScore = result, score
		}
	}
	return best, bestScore
}

// Bulk executes the bulk command: each name is searched for, matched and its item fetched and saved.
// Up to `workers` names are processed at once and one failure doesn't stop the others.
func (h *CommandHandler) Bulk(ctx context.Context, config BulkConfig) (BulkReport, error) {
	input := h.in
	if config.InputFile != "" && config.InputFile != "-" {
		file, err := os.Open(config.InputFile)
		if err != nil {
			return BulkReport{}, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
	}

	names, err := ReadNames(input)
	if err != nil {
		return BulkReport{}, err
	}

	report := BulkReport{Requested: len(names)}
	slog.Info("processing items", "count", len(names), "workers", h.workers)

	var mu sync.Mutex
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(h.workers)
	for _, name := range names {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			results, err := h.fetcher.Search(ctx, name)
			if err != nil {
				slog.Error("search failed", "name", name, "error", err)
				count(&report.Failed)
				return nil
			}

			target, outcome := MatchName(name, results)
			switch outcome {
			case NoResults:
				slog.Warn("no results found", "name", name)
				count(&report.NotFound)
				return nil
			case Ambiguous:
				closest, score := Closest(name, results)
				slog.Warn("ambiguous results, skipping", "name", name, "results", len(results),
					"closest", closest.Name, "closest-id", closest.ID, "similarity", fmt.Sprintf("%.2f", score))
				count(&report.Ambiguous)
				return nil
			}

			slog.Info("found", "name", name, "item-id", target.ID)
			if _, err := h.fetchAndSave(ctx, target.ID, name, config.SkipIcons); err != nil {
				slog.Error("failed to download item", "name", name, "item-id", target.ID, "error", err)
				count(&report.Failed)
				return nil
			}
			count(&report.Saved)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("bulk fetch complete", "requested", report.Requested, "saved", report.Saved,
		"not-found", report.NotFound, "ambiguous", report.Ambiguous, "failed", report.Failed)
	return report, ctx.Err()
}

// Write executes the write command, building a catalogue from the saved items.
func (h *CommandHandler) Write(ctx context.Context, config WriteConfig) error {
	records, err := h.store.LoadItems()
	if err != nil {
		return err
	}

	cat := h.builder.BuildCatalogue(records)
	if config.MinQuality != nil {
		cat = h.builder.FilterCatalogue(cat, catalogue.MinimumQuality(*config.MinQuality))
	}
	if config.Slot != "" {
		cat = h.builder.FilterCatalogue(cat, catalogue.InSlot(config.Slot))
	}
	slog.Info("built catalogue", "total-items", cat.Total)

	return h.writeCatalogue(cat, config.OutputFiles)
}

// writeCatalogue writes the catalogue to the specified output files, or the output when there are none.
func (h *CommandHandler) writeCatalogue(cat types.Catalogue, outputFiles []string) error {
	if err := validation.ValidateCatalogue(cat); err != nil {
		return fmt.Errorf("refusing to write invalid catalogue: %w", err)
	}

	jsonData, err := store.MarshalRecord(cat)
	if err != nil {
		return fmt.Errorf("failed to marshal catalogue: %w", err)
	}

	if len(outputFiles) == 0 {
		h.print(string(jsonData))
		return nil
	}

	for _, outputFile := range outputFiles {
		if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write catalogue to %s: %w", outputFile, err)
		}
		slog.Info("wrote catalogue", "file", outputFile, "items", cat.Total)
	}
	return nil
}
