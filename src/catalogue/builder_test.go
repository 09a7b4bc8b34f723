package catalogue

import (
	"testing"
	"time"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

func record(id int, name string, quality types.Quality, slot string, updated string) types.ItemRecord {
	details := types.NewItemDescription()
	details.Name = name
	details.SetQuality(quality)
	details.Slot = slot
	return types.ItemRecord{
		ID:          id,
		Name:        name,
		Icon:        "INV_Misc_Gem_01",
		LastUpdated: updated,
		Details:     details,
	}
}

func fixedBuilder() *Builder {
	return &Builder{now: func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }}
}

func TestBuilder_Summarise(t *testing.T) {
	summary := fixedBuilder().Summarise(record(16955, "Judgement Crown", types.EpicQuality, "Head", "2025-03-14 09:26:53"))

	expected := types.ItemSummary{
		Icon:        "INV_Misc_Gem_01",
		ID:          16955,
		Name:        "Judgement Crown",
		Quality:     types.EpicQuality,
		Slot:        "Head",
		Slug:        "judgement-crown",
		UpdatedDate: "2025-03-14 09:26:53",
	}
	if summary != expected {
		t.Errorf("Summarise() = %+v, want %+v", summary, expected)
	}
}

func TestBuilder_Slugs(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Thunderfury, Blessed Blade of the Windseeker", "thunderfury-blessed-blade-of-the-windseeker"},
		{"Might of Menethil", "might-of-menethil"},
		{"Bolt of Linen Cloth", "bolt-of-linen-cloth"},
	}

	for _, tt := range tests {
		got := fixedBuilder().Summarise(record(1, tt.name, types.CommonQuality, "", "2025-03-14 09:26:53")).Slug
		if got != tt.want {
			t.Errorf("Slug(%s) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestBuilder_MergeRecords(t *testing.T) {
	builder := fixedBuilder()

	merged := builder.MergeRecords([]types.ItemRecord{
		record(2996, "Bolt of Linen Cloth", types.CommonQuality, "", "2025-03-01 10:00:00"),
		record(29, "Old Name", types.CommonQuality, "", "2025-01-01 10:00:00"),
		record(29, "New Name", types.CommonQuality, "", "2025-02-01 10:00:00"),
		record(29, "Older Name", types.CommonQuality, "", "2024-12-01 10:00:00"),
	})

	if len(merged) != 2 {
		t.Fatalf("MergeRecords() length = %d, want 2", len(merged))
	}
	if merged[0].ID != 29 || merged[1].ID != 2996 {
		t.Errorf("MergeRecords() ids = [%d %d], want [29 2996]", merged[0].ID, merged[1].ID)
	}
	if merged[0].Name != "New Name" {
		t.Errorf("MergeRecords() kept %s, want the most recent 'New Name'", merged[0].Name)
	}
}

func TestBuilder_BuildCatalogue(t *testing.T) {
	tests := []struct {
		name          string
		records       []types.ItemRecord
		expectedTotal int
		expectedFirst int
	}{
		{
			name:          "No records",
			records:       []types.ItemRecord{},
			expectedTotal: 0,
		},
		{
			name: "Records are ordered by id",
			records: []types.ItemRecord{
				record(16955, "Judgement Crown", types.EpicQuality, "Head", "2025-03-14 09:26:53"),
				record(2996, "Bolt of Linen Cloth", types.CommonQuality, "", "2025-03-14 09:20:00"),
			},
			expectedTotal: 2,
			expectedFirst: 2996,
		},
		{
			name: "Duplicates are merged",
			records: []types.ItemRecord{
				record(29, "Item", types.CommonQuality, "", "2025-03-14 09:20:00"),
				record(29, "Item", types.CommonQuality, "", "2025-03-14 09:21:00"),
			},
			expectedTotal: 1,
			expectedFirst: 29,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fixedBuilder().BuildCatalogue(tt.records)

			if result.Spec.Version != 1 {
				t.Errorf("Spec.Version = %d, want 1", result.Spec.Version)
			}
			if result.Datestamp != "2025-03-14" {
				t.Errorf("Datestamp = %s, want 2025-03-14", result.Datestamp)
			}
			if result.Total != tt.expectedTotal {
				t.Errorf("Total = %d, want %d", result.Total, tt.expectedTotal)
			}
			if len(result.ItemSummaryList) != tt.expectedTotal {
				t.Errorf("ItemSummaryList length = %d, want %d", len(result.ItemSummaryList), tt.expectedTotal)
			}
			if result.ItemSummaryList == nil {
				t.Errorf("ItemSummaryList is nil, want an empty list")
			}
			if tt.expectedTotal > 0 && result.ItemSummaryList[0].ID != tt.expectedFirst {
				t.Errorf("First item id = %d, want %d", result.ItemSummaryList[0].ID, tt.expectedFirst)
			}
		})
	}
}

func TestBuilder_ShortenCatalogue(t *testing.T) {
	builder := fixedBuilder()
	catalogue := builder.BuildCatalogue([]types.ItemRecord{
		record(1, "Old Item", types.CommonQuality, "", "2024-01-01 00:00:00"),
		record(2, "New Item", types.CommonQuality, "", "2025-03-01 00:00:00"),
		record(3, "Bad Date", types.CommonQuality, "", "yesterday"),
	})

	result := builder.ShortenCatalogue(catalogue, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	if result.Total != 1 {
		t.Errorf("Shortened catalogue total = %d, want 1", result.Total)
	}
	if len(result.ItemSummaryList) != 1 {
		t.Fatalf("Shortened catalogue item list length = %d, want 1", len(result.ItemSummaryList))
	}
	if result.ItemSummaryList[0].Name != "New Item" {
		t.Errorf("Remaining item name = %s, want New Item", result.ItemSummaryList[0].Name)
	}
}

func TestBuilder_FilterCatalogue(t *testing.T) {
	builder := fixedBuilder()
	catalogue := builder.BuildCatalogue([]types.ItemRecord{
		record(16955, "Judgement Crown", types.EpicQuality, "Head", "2025-03-14 09:26:53"),
		record(16921, "Halo of Transcendence", types.EpicQuality, "Head", "2025-03-14 09:26:53"),
		record(2996, "Bolt of Linen Cloth", types.CommonQuality, "", "2025-03-14 09:26:53"),
		record(10046, "Simple Linen Boots", types.UncommonQuality, "Feet", "2025-03-14 09:26:53"),
	})

	tests := []struct {
		name      string
		predicate func(types.ItemSummary) bool
		wantIDs   []int
	}{
		{"epic or better", MinimumQuality(types.EpicQuality), []int{16921, 16955}},
		{"uncommon or better", MinimumQuality(types.UncommonQuality), []int{10046, 16921, 16955}},
		{"feet", InSlot("Feet"), []int{10046}},
		{"nothing", InSlot("Tabard"), []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := builder.FilterCatalogue(catalogue, tt.predicate)

			if result.Total != len(tt.wantIDs) {
				t.Errorf("Filtered catalogue total = %d, want %d", result.Total, len(tt.wantIDs))
			}
			if result.Datestamp != catalogue.Datestamp {
				t.Errorf("Datestamp = %s, want %s", result.Datestamp, catalogue.Datestamp)
			}
			for i, summary := range result.ItemSummaryList {
				if i >= len(tt.wantIDs) || summary.ID != tt.wantIDs[i] {
					t.Errorf("ItemSummaryList[%d].ID = %d, want %v", i, summary.ID, tt.wantIDs)
				}
			}
		})
	}
}
