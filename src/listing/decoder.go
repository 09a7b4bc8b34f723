// Package listing decodes the listviews embedded in database pages.
//
// A listview is a script literal of the form
//
//	new Listview({template: 'npc', id: 'dropped-by', ..., data: [{id:1,name:'Ragnaros',...},{...}]});
//
// The data array is not JSON (unquoted keys, single quoted strings with backslash escapes),
// so entries are split on their "},{" delimiter and fields are matched individually.
package listing

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

// NameResolver labels an item id, e.g. a reagent.
type NameResolver interface {
	ResolveName(itemID int) string
}

// ZoneResolver labels a zone id.
type ZoneResolver interface {
	ResolveZone(zoneID int) string
}

var (
	listviewIDRegex = regexp.MustCompile(`id:\s*'([a-z-]+)'`)

	// the data array of a listview, possibly empty, before the next listview starts
	listviewDataRegex = regexp.MustCompile(`(?s)^.*?data:\s*(\[\s*\]|\[\{.*?\}\])`)
)

type listview struct {
	id   types.ListingID
	data string
}

// listviews finds each listview id in page order along with its data array.
// A listview's data is only looked for up to the next listview id, listviews without one are skipped.
func listviews(page string) []listview {
	locations := listviewIDRegex.FindAllStringSubmatchIndex(page, -1)
	found := make([]listview, 0, len(locations))
	for i, loc := range locations {
		end := len(page)
		if i+1 < len(locations) {
			end = locations[i+1][0]
		}
		matches := listviewDataRegex.FindStringSubmatch(page[loc[1]:end])
		if matches == nil {
			continue
		}
		found = append(found, listview{id: types.ListingID(page[loc[2]:loc[3]]), data: matches[1]})
	}
	return found
}

// Decoder turns listviews into listing entries, resolving reagent and zone names as it goes.
type Decoder struct {
	names NameResolver
	zones ZoneResolver
}

// NewDecoder creates a decoder using the given resolvers.
func NewDecoder(names NameResolver, zones ZoneResolver) *Decoder {
	return &Decoder{
		names: names,
		zones: zones,
	}
}

// Locate finds the data array of the listview with the given id in page text.
func Locate(page string, id types.ListingID) (string, bool) {
	for _, view := range listviews(page) {
		if view.id == id {
			return view.data, true
		}
	}
	return "", false
}

// Decode returns the entries of the listview with the given id, in page order.
// A listview that can't be found is an empty listing.
func (d *Decoder) Decode(page string, id types.ListingID) []types.ListingEntry {
	span, found := Locate(page, id)
	if !found {
		slog.Debug("listing not found", "listing", id)
		return []types.ListingEntry{}
	}
	return d.decodeSpan(span, id)
}

// DecodeAll decodes every listview in the page, keyed by ListingID.Key (e.g. "dropped_by").
// When a listview id occurs more than once the first one wins.
func (d *Decoder) DecodeAll(page string) map[string][]types.ListingEntry {
	listings := make(map[string][]types.ListingEntry)
	for _, view := range listviews(page) {
		if _, seen := listings[view.id.Key()]; seen {
			continue
		}
		listings[view.id.Key()] = d.decodeSpan(view.data, view.id)
	}
	return listings
}

func (d *Decoder) decodeSpan(span string, id types.ListingID) []types.ListingEntry {
	entries := []types.ListingEntry{}
	for _, raw := range Split(span) {
		if entry, ok := d.entry(id, ExtractFields(raw)); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// entry assembles a listing entry from extracted fields.
// Entries without a name (or, for search results, without an id) are dropped.
func (d *Decoder) entry(id types.ListingID, fields Fields) (types.ListingEntry, bool) {
	if fields.Name == "" {
		return types.ListingEntry{}, false
	}
	entry := types.ListingEntry{Name: fields.Name}

	if id.IsSearch() {
		if fields.ID == nil {
			return types.ListingEntry{}, false
		}
		entry.ID = *fields.ID
		quality := types.CommonQuality
		if fields.Quality != nil {
			quality = types.QualityFromCode(fmt.Sprint(*fields.Quality))
		}
		entry.Quality = &quality
		return entry, true
	}

	if fields.Percent != nil {
		entry.DropRate = fmt.Sprintf("%d%%", *fields.Percent)
	}

	if fields.Location != nil {
		zoneID := *fields.Location
		entry.Zone = &types.Zone{ID: zoneID, Name: d.zones.ResolveZone(zoneID)}
	}

	if id.IsCrafting() {
		entry.Reagents = d.reagents(fields.Reagents)
	}

	return entry, true
}

func (d *Decoder) reagents(pairs []ReagentPair) []types.Reagent {
	reagents := make([]types.Reagent, 0, len(pairs))
	if len(pairs) > 0 {
		slog.Debug("resolving reagent names", "count", len(pairs))
	}
	for _, pair := range pairs {
		reagents = append(reagents, types.Reagent{
			ItemID: pair.ItemID,
			Name:   d.names.ResolveName(pair.ItemID),
			Count:  pair.Count,
		})
	}
	return reagents
}
