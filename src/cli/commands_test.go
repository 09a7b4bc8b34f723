package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogri-la/twowdb-fetch-go/src/http"
	"github.com/ogri-la/twowdb-fetch-go/src/listing"
	"github.com/ogri-la/twowdb-fetch-go/src/resolve"
	"github.com/ogri-la/twowdb-fetch-go/src/store"
	"github.com/ogri-la/twowdb-fetch-go/src/twowdb"
	"github.com/ogri-la/twowdb-fetch-go/src/types"
	"github.com/ogri-la/twowdb-fetch-go/src/validation"
)

const testBaseURL = "https://db.example.org"

// a 1x1 png
var pngData = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func fixture(t *testing.T, name string) *http.Response {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "test", "fixtures", name))
	require.NoError(t, err)
	return &http.Response{StatusCode: 200, Body: data}
}

func titlePage(title string) *http.Response {
	return &http.Response{StatusCode: 200, Body: []byte("<html><head><title>" + title + "</title></head><body></body></html>")}
}

// siteClient is a mock client serving the fixture pages.
func siteClient(t *testing.T) *http.MockHTTPClient {
	client := http.NewMockHTTPClient()
	client.SetResponse(twowdb.ItemURL(testBaseURL, 16955), fixture(t, "item-16955-judgement-crown.html"))
	client.SetResponse(twowdb.ItemURL(testBaseURL, 2996), fixture(t, "item-2996-bolt-of-linen-cloth.html"))
	client.SetResponse(twowdb.ItemURL(testBaseURL, 2589), titlePage("Linen Cloth - Item - Turtle WoW Database"))
	client.SetResponse(twowdb.ItemURL(testBaseURL, 1), &http.Response{StatusCode: 404})
	client.SetResponse(twowdb.IconURL(testBaseURL, "INV_Helmet_74"), &http.Response{StatusCode: 200, Body: pngData})
	client.SetResponse(twowdb.IconURL(testBaseURL, "INV_Fabric_Linen_02"), &http.Response{StatusCode: 404})
	return client
}

func newTestHandler(t *testing.T, client http.HTTPClient) (*CommandHandler, *bytes.Buffer) {
	names := resolve.NewNameCache(twowdb.NameLookup(context.Background(), client, testBaseURL))
	fetcher := twowdb.NewFetcher(client, testBaseURL, listing.NewDecoder(names, resolve.NewZoneTable(nil)))
	handler := NewCommandHandler(fetcher, store.New(t.TempDir()), names, 2)
	out := &bytes.Buffer{}
	handler.out = out
	return handler, out
}

func TestSearch(t *testing.T) {
	client := siteClient(t)
	client.SetResponse(twowdb.SearchURL(testBaseURL, "linen"), fixture(t, "search-linen.html"))
	handler, out := newTestHandler(t, client)

	err := handler.Search(context.Background(), SearchConfig{Query: "linen", Page: 1, PerPage: 2})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Linen Cloth")
	assert.Contains(t, output, "Bolt of Linen Cloth")
	assert.Contains(t, output, "2996")
	assert.NotContains(t, output, "Linen Bag")
	assert.Contains(t, output, "1-2 of 5")
	assert.Contains(t, output, "3 more, see --page 2")
}

func TestSearch_LastPage(t *testing.T) {
	client := siteClient(t)
	client.SetResponse(twowdb.SearchURL(testBaseURL, "linen"), fixture(t, "search-linen.html"))
	handler, out := newTestHandler(t, client)

	err := handler.Search(context.Background(), SearchConfig{Query: "linen", Page: 3, PerPage: 2})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Simple Linen Boots")
	assert.Contains(t, out.String(), "Uncommon")
	assert.NotContains(t, out.String(), "more, see --page")

	err = handler.Search(context.Background(), SearchConfig{Query: "linen", Page: 4, PerPage: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestSearch_NoResults(t *testing.T) {
	client := siteClient(t)
	client.SetResponse(twowdb.SearchURL(testBaseURL, "zzz"), titlePage("Search: zzz"))
	handler, out := newTestHandler(t, client)

	require.NoError(t, handler.Search(context.Background(), SearchConfig{Query: "zzz", Page: 1, PerPage: 10}))
	assert.Equal(t, "No items found.\n", out.String())
}

func TestSearch_DirectMatch(t *testing.T) {
	client := siteClient(t)
	direct := fixture(t, "item-16955-judgement-crown.html")
	direct.URL = twowdb.ItemURL(testBaseURL, 16955)
	client.SetResponse(twowdb.SearchURL(testBaseURL, "judgement crown"), direct)
	handler, out := newTestHandler(t, client)

	err := handler.Search(context.Background(), SearchConfig{Query: "judgement crown", Page: 1, PerPage: 10})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Direct match found! ID: 16955")
	assert.Contains(t, output, "Judgement Crown (Epic)")
	assert.Contains(t, output, "   Head Plate\n")
	assert.Contains(t, output, "   Stats: armor 823, stamina 23, strength 18\n")
	assert.Contains(t, output, "Drops from: Onyxia in Onyxia's Lair (95%)\n")

	assert.FileExists(t, handler.store.ItemPath(16955))
	assert.True(t, handler.store.HasIcon("INV_Helmet_74"))
}

func TestFetch(t *testing.T) {
	handler, out := newTestHandler(t, siteClient(t))

	err := handler.Fetch(context.Background(), FetchConfig{ItemIDs: []int{2996}})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Bolt of Linen Cloth (Common)")
	assert.Contains(t, output, "Created by: Bolt of Linen Cloth\n   Reagents: 2x Linen Cloth\n")
	assert.Contains(t, output, "Saved to: "+handler.store.ItemPath(2996))

	record, err := handler.store.LoadItem(2996)
	require.NoError(t, err)
	assert.Equal(t, "Bolt of Linen Cloth", record.Name)

	// the icon failed to download, the item is still saved
	assert.False(t, handler.store.HasIcon(record.Icon))

	// fetched names are remembered
	assert.Equal(t, "Bolt of Linen Cloth", handler.names.ResolveName(2996))
}

func TestFetch_SkipIcons(t *testing.T) {
	client := siteClient(t)
	handler, _ := newTestHandler(t, client)

	require.NoError(t, handler.Fetch(context.Background(), FetchConfig{ItemIDs: []int{16955}, SkipIcons: true}))
	assert.NotContains(t, client.GetCalls(), twowdb.IconURL(testBaseURL, "INV_Helmet_74"))
	assert.False(t, handler.store.HasIcon("INV_Helmet_74"))
}

func TestFetch_PartialFailure(t *testing.T) {
	handler, _ := newTestHandler(t, siteClient(t))

	err := handler.Fetch(context.Background(), FetchConfig{ItemIDs: []int{1, 16955}, SkipIcons: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, twowdb.ErrItemNotFound))
	assert.FileExists(t, handler.store.ItemPath(16955), "later items are still fetched")
}

func TestSummary(t *testing.T) {
	details := types.NewItemDescription()
	details.SetQuality(types.RareQuality)
	record := types.ItemRecord{
		ID:      1,
		Name:    "Ring of Testing",
		Details: details,
		Sources: map[string][]types.ListingEntry{
			"sold_by":           {{Name: "Vendor One"}, {Name: "Vendor Two"}},
			"reward_from_quest": {{Name: "The Test"}},
		},
	}

	expected := strings.Repeat("-", 40) + "\n" +
		"Ring of Testing (Rare)\n" +
		strings.Repeat("-", 40) + "\n" +
		"Sold by: Vendor One\n"
	assert.Equal(t, expected, Summary(record))

	delete(record.Sources, "sold_by")
	assert.True(t, strings.HasSuffix(Summary(record), "Quest reward: The Test\n"))

	record.Sources = map[string][]types.ListingEntry{"dropped_by": {{Name: "Hogger"}}}
	assert.True(t, strings.HasSuffix(Summary(record), "Drops from: Hogger (?)\n"))
}

func TestReadNames(t *testing.T) {
	names, err := ReadNames(strings.NewReader("Linen Cloth\n\n  Wool Cloth  \nEND\nSilk Cloth\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Linen Cloth", "Wool Cloth"}, names)

	names, err = ReadNames(strings.NewReader("Linen Cloth"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Linen Cloth"}, names)

	names, err = ReadNames(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMatchName(t *testing.T) {
	linen := types.SearchResult{ID: 2589, Name: "Linen Cloth"}
	bolt := types.SearchResult{ID: 2996, Name: "Bolt of Linen Cloth"}

	tests := []struct {
		name            string
		query           string
		results         []types.SearchResult
		expected        types.SearchResult
		expectedOutcome MatchOutcome
	}{
		{"exact match ignoring case", "linen cloth", []types.SearchResult{bolt, linen}, linen, Matched},
		{"single result", "bolt of linen", []types.SearchResult{bolt}, bolt, Matched},
		{"no results", "zzz", []types.SearchResult{}, types.SearchResult{}, NoResults},
		{"ambiguous", "linen", []types.SearchResult{linen, bolt}, types.SearchResult{}, Ambiguous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, outcome := MatchName(tt.query, tt.results)
			assert.Equal(t, tt.expected, actual)
			assert.Equal(t, tt.expectedOutcome, outcome)
		})
	}
}

func TestClosest(t *testing.T) {
	results := []types.SearchResult{
		{ID: 4238, Name: "Linen Bag"},
		{ID: 2996, Name: "Bolt of Linen Cloth"},
		{ID: 2589, Name: "Linen Cloth"},
	}

	closest, score := Closest("linen clth", results)
	assert.Equal(t, 2589, closest.ID)
	assert.Greater(t, score, 0.8)
	assert.LessOrEqual(t, score, 1.0)
}

func TestBulk(t *testing.T) {
	client := siteClient(t)
	client.SetResponse(twowdb.SearchURL(testBaseURL, "Bolt of Linen Cloth"), fixture(t, "search-linen.html"))
	client.SetResponse(twowdb.SearchURL(testBaseURL, "linen"), fixture(t, "search-linen.html"))
	client.SetResponse(twowdb.SearchURL(testBaseURL, "zzz"), titlePage("Search: zzz"))
	client.SetResponse(twowdb.SearchURL(testBaseURL, "broken"), &http.Response{StatusCode: 503})
	direct := fixture(t, "item-16955-judgement-crown.html")
	direct.URL = twowdb.ItemURL(testBaseURL, 16955)
	client.SetResponse(twowdb.SearchURL(testBaseURL, "Judgement Crown"), direct)

	handler, _ := newTestHandler(t, client)
	handler.in = strings.NewReader("Bolt of Linen Cloth\nJudgement Crown\n\nzzz\nlinen\nbroken\nEND\nSilk Cloth\n")

	report, err := handler.Bulk(context.Background(), BulkConfig{SkipIcons: true})
	require.NoError(t, err)

	assert.Equal(t, BulkReport{Requested: 5, Saved: 2, NotFound: 1, Ambiguous: 1, Failed: 1}, report)
	assert.FileExists(t, handler.store.ItemPath(2996))
	assert.FileExists(t, handler.store.ItemPath(16955))
	assert.NotContains(t, client.GetCalls(), twowdb.SearchURL(testBaseURL, "Silk Cloth"))
}

func TestSaveIcon_Concurrent(t *testing.T) {
	client := siteClient(t)
	handler, _ := newTestHandler(t, client)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, handler.saveIcon(context.Background(), "INV_Helmet_74"))
		}()
	}
	wg.Wait()

	assert.True(t, handler.store.HasIcon("INV_Helmet_74"))
	iconURL := twowdb.IconURL(testBaseURL, "INV_Helmet_74")
	downloads := 0
	for _, call := range client.GetCalls() {
		if call == iconURL {
			downloads++
		}
	}
	assert.Equal(t, 1, downloads, "a shared icon is downloaded once")
}

func TestBulk_InputFile(t *testing.T) {
	client := siteClient(t)
	client.SetResponse(twowdb.SearchURL(testBaseURL, "zzz"), titlePage("Search: zzz"))
	handler, _ := newTestHandler(t, client)

	path := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(path, []byte("zzz\n"), 0644))

	report, err := handler.Bulk(context.Background(), BulkConfig{InputFile: path})
	require.NoError(t, err)
	assert.Equal(t, BulkReport{Requested: 1, NotFound: 1}, report)

	_, err = handler.Bulk(context.Background(), BulkConfig{InputFile: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func savedRecord(id int, name string, quality types.Quality, slot string) types.ItemRecord {
	details := types.NewItemDescription()
	details.Name = name
	details.SetQuality(quality)
	details.Slot = slot
	return types.ItemRecord{
		ID:          id,
		Name:        name,
		Icon:        "INV_Misc_Gem_01",
		LastUpdated: "2025-03-14 09:26:53",
		Details:     details,
		Sources:     map[string][]types.ListingEntry{},
	}
}

func TestWrite(t *testing.T) {
	handler, out := newTestHandler(t, http.NewMockHTTPClient())
	for _, record := range []types.ItemRecord{
		savedRecord(16955, "Judgement Crown", types.EpicQuality, "Head"),
		savedRecord(2996, "Bolt of Linen Cloth", types.CommonQuality, ""),
		savedRecord(10046, "Simple Linen Boots", types.UncommonQuality, "Feet"),
	} {
		_, err := handler.store.SaveItem(record)
		require.NoError(t, err)
	}

	outputFile := filepath.Join(t.TempDir(), "catalogue.json")
	require.NoError(t, handler.Write(context.Background(), WriteConfig{OutputFiles: []string{outputFile}}))
	assert.NoError(t, validation.ValidateCatalogueFile(outputFile))
	assert.Empty(t, out.String(), "nothing is written to the output when writing to files")

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total": 3`)

	epic := types.EpicQuality
	require.NoError(t, handler.Write(context.Background(), WriteConfig{MinQuality: &epic}))
	assert.Contains(t, out.String(), `"slug": "judgement-crown"`)
	assert.NotContains(t, out.String(), "simple-linen-boots")
	assert.Contains(t, out.String(), `"total": 1`)
}

func TestWrite_Slot(t *testing.T) {
	handler, out := newTestHandler(t, http.NewMockHTTPClient())
	for _, record := range []types.ItemRecord{
		savedRecord(16955, "Judgement Crown", types.EpicQuality, "Head"),
		savedRecord(10046, "Simple Linen Boots", types.UncommonQuality, "Feet"),
	} {
		_, err := handler.store.SaveItem(record)
		require.NoError(t, err)
	}

	require.NoError(t, handler.Write(context.Background(), WriteConfig{Slot: "Feet"}))
	assert.Contains(t, out.String(), `"id": 10046`)
	assert.NotContains(t, out.String(), `"id": 16955`)
}

func TestWrite_Empty(t *testing.T) {
	handler, out := newTestHandler(t, http.NewMockHTTPClient())

	require.NoError(t, handler.Write(context.Background(), WriteConfig{}))
	assert.Contains(t, out.String(), `"total": 0`)
	assert.Contains(t, out.String(), `"item-summary-list": []`)
}
