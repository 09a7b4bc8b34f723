package catalogue

import (
	"log/slog"
	"sort"
	"time"

	"github.com/gosimple/slug"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

// SpecVersion is the version of the catalogue format written by BuildCatalogue.
const SpecVersion = 1

// Builder handles building catalogues from saved items
type Builder struct {
	now func() time.Time
}

// NewBuilder creates a new catalogue builder
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Summarise reduces an item record to its catalogue entry.
func (b *Builder) Summarise(record types.ItemRecord) types.ItemSummary {
	return types.ItemSummary{
		Icon:        record.Icon,
		ID:          record.ID,
		Name:        record.Name,
		Quality:     record.Details.Quality,
		Slot:        record.Details.Slot,
		Slug:        slug.Make(record.Name),
		UpdatedDate: record.LastUpdated,
	}
}

// MergeRecords keeps a single record per item id, the most recently updated one.
func (b *Builder) MergeRecords(records []types.ItemRecord) []types.ItemRecord {
	latest := make(map[int]types.ItemRecord, len(records))
	for _, record := range records {
		existing, seen := latest[record.ID]
		// timestamps are "YYYY-MM-DD HH:MM:SS" so compare lexically
		if !seen || record.LastUpdated > existing.LastUpdated {
			if seen {
				slog.Debug("replacing older copy of item", "item-id", record.ID, "last-updated", existing.LastUpdated)
			}
			latest[record.ID] = record
		}
	}

	merged := make([]types.ItemRecord, 0, len(latest))
	for _, record := range latest {
		merged = append(merged, record)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// BuildCatalogue creates a catalogue from a list of item records, one entry per item ordered by id.
func (b *Builder) BuildCatalogue(records []types.ItemRecord) types.Catalogue {
	merged := b.MergeRecords(records)

	summaries := make([]types.ItemSummary, 0, len(merged))
	for _, record := range merged {
		summaries = append(summaries, b.Summarise(record))
	}

	catalogue := types.Catalogue{
		Datestamp:       b.currentDateStamp(),
		Total:           len(summaries),
		ItemSummaryList: summaries,
	}
	catalogue.Spec.Version = SpecVersion
	return catalogue
}

// ShortenCatalogue drops items that haven't been updated since the cutoff
func (b *Builder) ShortenCatalogue(catalogue types.Catalogue, cutoffDate time.Time) types.Catalogue {
	return b.FilterCatalogue(catalogue, func(summary types.ItemSummary) bool {
		updated, err := time.ParseInLocation(types.LastUpdatedLayout, summary.UpdatedDate, cutoffDate.Location())
		return err == nil && updated.After(cutoffDate)
	})
}

// FilterCatalogue filters items by a predicate function
func (b *Builder) FilterCatalogue(catalogue types.Catalogue, predicate func(types.ItemSummary) bool) types.Catalogue {
	filtered := []types.ItemSummary{}
	for _, summary := range catalogue.ItemSummaryList {
		if predicate(summary) {
			filtered = append(filtered, summary)
		}
	}

	return types.Catalogue{
		Spec:            catalogue.Spec,
		Datestamp:       catalogue.Datestamp,
		Total:           len(filtered),
		ItemSummaryList: filtered,
	}
}

// MinimumQuality matches items of at least the given quality.
func MinimumQuality(quality types.Quality) func(types.ItemSummary) bool {
	return func(summary types.ItemSummary) bool {
		return summary.Quality >= quality
	}
}

// InSlot matches items worn in the given slot, e.g. "Head".
func InSlot(slot string) func(types.ItemSummary) bool {
	return func(summary types.ItemSummary) bool {
		return summary.Slot == slot
	}
}

// currentDateStamp returns current date in YYYY-MM-DD format
func (b *Builder) currentDateStamp() string {
	return b.now().Format("2006-01-02")
}
