package types

import "strings"

// ListingID identifies a named listview embedded in a page, e.g. "dropped-by".
type ListingID string

const (
	SearchResultsListing   ListingID = "items"
	DroppedByListing       ListingID = "dropped-by"
	CreatedByListing       ListingID = "created-by"
	SoldByListing          ListingID = "sold-by"
	RewardFromQuestListing ListingID = "reward-from-quest"
)

var KnownListings = []ListingID{
	SearchResultsListing, DroppedByListing, CreatedByListing, SoldByListing, RewardFromQuestListing,
}

// Key is the listing id as exposed to callers: hyphens become underscores.
func (id ListingID) Key() string {
	return strings.ReplaceAll(string(id), "-", "_")
}

// IsCrafting reports whether entries of this listing carry reagents.
func (id ListingID) IsCrafting() bool {
	return id == CreatedByListing
}

// IsSearch reports whether entries of this listing are search results.
func (id ListingID) IsSearch() bool {
	return id == SearchResultsListing
}

type Zone struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Reagent struct {
	ItemID int    `json:"id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// ListingEntry is one row of a listing.
// Reagents is non-nil only for crafting listings, ID and Quality are only set for search results.
type ListingEntry struct {
	ID       int       `json:"id,omitempty"`
	Name     string    `json:"name"`
	Quality  *Quality  `json:"quality,omitempty"`
	DropRate string    `json:"drop_rate,omitempty"`
	Zone     *Zone     `json:"zone,omitempty"`
	Reagents []Reagent `json:"reagents,omitempty"`
}
