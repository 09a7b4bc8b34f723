package twowdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ogri-la/twowdb-fetch-go/src/http"
	"github.com/ogri-la/twowdb-fetch-go/src/listing"
	"github.com/ogri-la/twowdb-fetch-go/src/resolve"
	"github.com/ogri-la/twowdb-fetch-go/src/tooltip"
	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

// Fetcher downloads and decodes pages from the database site.
type Fetcher struct {
	client  http.HTTPClient
	baseURL string
	decoder *listing.Decoder
	now     func() time.Time
}

// NewFetcher creates a Fetcher. The decoder resolves the reagent and zone names in item sources.
func NewFetcher(client http.HTTPClient, baseURL string, decoder *listing.Decoder) *Fetcher {
	return &Fetcher{
		client:  client,
		baseURL: baseURL,
		decoder: decoder,
		now:     time.Now,
	}
}

// BaseURL is the site the fetcher reads from.
func (f *Fetcher) BaseURL() string {
	return f.baseURL
}

// FetchItem downloads an item page and builds a complete record from it.
// A non-200 response is ErrItemNotFound.
func (f *Fetcher) FetchItem(ctx context.Context, itemID int) (types.ItemRecord, error) {
	pageURL := ItemURL(f.baseURL, itemID)
	slog.Debug("fetching item", "item-id", itemID, "url", pageURL)

	resp, err := f.client.Get(ctx, pageURL)
	if err != nil {
		return types.ItemRecord{}, fmt.Errorf("failed to fetch item %d: %w", itemID, err)
	}
	if resp.StatusCode != 200 {
		return types.ItemRecord{}, fmt.Errorf("item %d, status %d: %w", itemID, resp.StatusCode, ErrItemNotFound)
	}

	return f.BuildRecord(itemID, string(resp.Body))
}

// BuildRecord assembles an item record from the HTML of its item page.
func (f *Fetcher) BuildRecord(itemID int, page string) (types.ItemRecord, error) {
	parsed, err := ParseItemPage(itemID, page)
	if err != nil {
		return types.ItemRecord{}, err
	}

	details := tooltip.Parse(parsed.TooltipText, parsed.QualityToken)

	name := details.Name
	if name == "" {
		name = parsed.Title
	}
	if name == "" {
		name = UnknownItemName
	}

	return types.ItemRecord{
		ID:          itemID,
		Name:        name,
		Icon:        parsed.Icon,
		LastUpdated: f.now().Format(types.LastUpdatedLayout),
		Details:     details,
		Sources:     f.decoder.DecodeAll(page),
	}, nil
}

// Search finds items by name.
// When the site redirects straight to an item page the single result is a direct match
// named DirectMatchName, otherwise the results are read from the search results listing.
func (f *Fetcher) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return nil, ErrQueryTooShort
	}

	resp, err := f.client.Get(ctx, SearchURL(f.baseURL, query))
	if err != nil {
		return nil, fmt.Errorf("failed to search for '%s': %w", query, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("search for '%s', status %d: %w", query, resp.StatusCode, ErrUnexpectedPage)
	}

	if itemID, ok := DirectMatchID(resp.URL); ok {
		slog.Debug("search redirected to item", "query", query, "item-id", itemID)
		return []types.SearchResult{{ID: itemID, Name: DirectMatchName, Quality: types.CommonQuality, Direct: true}}, nil
	}

	entries := f.decoder.Decode(string(resp.Body), types.SearchResultsListing)
	results := make([]types.SearchResult, 0, len(entries))
	for _, entry := range entries {
		result := types.SearchResult{ID: entry.ID, Name: entry.Name, Quality: types.CommonQuality}
		if entry.Quality != nil {
			result.Quality = *entry.Quality
		}
		results = append(results, result)
	}
	return results, nil
}

// DirectMatchID returns the item id of a URL the search was redirected to, e.g. ".../?item=19019".
func DirectMatchID(pageURL string) (int, bool) {
	if !strings.Contains(pageURL, "item=") {
		return 0, false
	}
	if parsed, err := url.Parse(pageURL); err == nil {
		if itemID, err := strconv.Atoi(parsed.Query().Get("item")); err == nil {
			return itemID, true
		}
	}
	_, after, _ := strings.Cut(pageURL, "item=")
	end := strings.IndexFunc(after, func(r rune) bool { return r < '0' || r > '9' })
	if end >= 0 {
		after = after[:end]
	}
	itemID, err := strconv.Atoi(after)
	return itemID, err == nil
}

// FetchIcon downloads the large version of an icon.
func (f *Fetcher) FetchIcon(ctx context.Context, icon string) ([]byte, error) {
	resp, err := f.client.Get(ctx, IconURL(f.baseURL, icon))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch icon '%s': %w", icon, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("icon '%s', status %d: %w", icon, resp.StatusCode, ErrUnexpectedPage)
	}
	return resp.Body, nil
}

// NameLookup looks item names up by fetching their item page and reading its title.
// Wrap it in a resolve.NameCache to memoize results.
func NameLookup(ctx context.Context, client http.HTTPClient, baseURL string) resolve.LookupFunc {
	return func(itemID int) (string, error) {
		resp, err := client.Get(ctx, ItemURL(baseURL, itemID))
		if err != nil {
			return "", fmt.Errorf("failed to fetch item %d: %w", itemID, err)
		}
		if resp.StatusCode != 200 {
			return "", fmt.Errorf("item %d, status %d: %w", itemID, resp.StatusCode, ErrItemNotFound)
		}
		name, err := ParseTitle(string(resp.Body))
		if err != nil {
			return "", err
		}
		if name == "" {
			return "", fmt.Errorf("item %d has no title: %w", itemID, ErrUnexpectedPage)
		}
		return name, nil
	}
}
