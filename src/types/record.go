package types

// ItemRecord is everything known about one item, as written to items/{id}.json.
type ItemRecord struct {
	ID          int                       `json:"id"`
	Name        string                    `json:"name"`
	Icon        string                    `json:"icon"`
	LastUpdated string                    `json:"last_updated"`
	Details     ItemDescription           `json:"details"`
	Sources     map[string][]ListingEntry `json:"sources"`
}

// LastUpdatedLayout is the time layout of ItemRecord.LastUpdated.
const LastUpdatedLayout = "2006-01-02 15:04:05"

// SearchResult is an item found by a name search.
type SearchResult struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Quality Quality `json:"quality"`
	Direct  bool    `json:"is_direct"`
}

// ItemSummary is the catalogue entry for a saved item.
// Note: keep fields alphabetised for deterministic JSON output
type ItemSummary struct {
	Icon        string  `json:"icon"`
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Quality     Quality `json:"quality"`
	Slot        string  `json:"slot,omitempty"`
	Slug        string  `json:"slug"`
	UpdatedDate string  `json:"updated-date"`
}

// Catalogue is the index of all saved items.
type Catalogue struct {
	Spec struct {
		Version int `json:"version"`
	} `json:"spec"`
	Datestamp       string        `json:"datestamp"`
	Total           int           `json:"total"`
	ItemSummaryList []ItemSummary `json:"item-summary-list"`
}
