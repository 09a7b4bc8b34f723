// Package validation checks item records and catalogues before they are written to disk.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

var ErrInvalid = errors.New("validation failed")

// issuesError turns a map of zog issues into a single error, fields in a stable order.
func issuesError[M ~map[string]V, V any](issues M) error {
	if len(issues) == 0 {
		return nil
	}
	keys := make([]string, 0, len(issues))
	for key := range issues {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, issues[key]))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, "; "))
}

// ValidateRecord checks an item record is complete enough to be saved.
func ValidateRecord(record types.ItemRecord) error {
	if err := issuesError(ItemRecordSchema.Validate(&record)); err != nil {
		return err
	}

	if !record.Details.Quality.Valid() {
		return fmt.Errorf("%w: details.quality %d is not a known quality", ErrInvalid, record.Details.Quality)
	}
	if record.Details.CSSClass != record.Details.Quality.CSSClass() {
		return fmt.Errorf("%w: details.css_class %q does not match quality %s", ErrInvalid, record.Details.CSSClass, record.Details.Quality)
	}
	if record.Details.ArmorValue != nil && record.Details.Stats[types.ArmorStat] != *record.Details.ArmorValue {
		return fmt.Errorf("%w: details.armor_value and the armor stat differ", ErrInvalid)
	}

	for key, entries := range record.Sources {
		for i, entry := range entries {
			if entry.Name == "" {
				return fmt.Errorf("%w: sources.%s[%d].name must be a non-empty string", ErrInvalid, key, i)
			}
			for j, reagent := range entry.Reagents {
				if reagent.Count <= 0 {
					return fmt.Errorf("%w: sources.%s[%d].reagents[%d].count must be positive", ErrInvalid, key, i, j)
				}
			}
		}
	}
	return nil
}

// ValidateCatalogue checks a catalogue's fields, that total matches the list and the list is ordered by id.
func ValidateCatalogue(catalogue types.Catalogue) error {
	if err := issuesError(CatalogueSchema.Validate(&catalogue)); err != nil {
		return err
	}

	if catalogue.Total != len(catalogue.ItemSummaryList) {
		return fmt.Errorf("%w: total (%d) must equal the number of items in item-summary-list (%d)",
			ErrInvalid, catalogue.Total, len(catalogue.ItemSummaryList))
	}

	for i, summary := range catalogue.ItemSummaryList {
		if !summary.Quality.Valid() {
			return fmt.Errorf("%w: item-summary-list[%d].quality is not a known quality", ErrInvalid, i)
		}
		if i > 0 && catalogue.ItemSummaryList[i-1].ID >= summary.ID {
			return fmt.Errorf("%w: item-summary-list[%d] is out of order or duplicated (id %d)", ErrInvalid, i, summary.ID)
		}
	}
	return nil
}

// ValidateCatalogueFile validates a catalogue JSON file
func ValidateCatalogueFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ValidateCatalogueJSON(data)
}

// ValidateCatalogueJSON validates catalogue JSON data
func ValidateCatalogueJSON(data []byte) error {
	var catalogue types.Catalogue
	if err := json.Unmarshal(data, &catalogue); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return ValidateCatalogue(catalogue)
}
