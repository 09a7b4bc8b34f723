package validation

import (
	"time"

	"github.com/Oudwins/zog"
	"github.com/gosimple/slug"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

// DatestampLayout is the layout of a catalogue datestamp.
const DatestampLayout = "2006-01-02"

// isValidTimestampPtr checks a string is a "2006-01-02 15:04:05" timestamp
func isValidTimestampPtr(val *string, ctx zog.Ctx) bool {
	if val == nil {
		return false
	}
	_, err := time.Parse(types.LastUpdatedLayout, *val)
	return err == nil
}

// isValidDatestampPtr accepts a plain date or a full timestamp
func isValidDatestampPtr(val *string, ctx zog.Ctx) bool {
	if val == nil {
		return false
	}
	_, err1 := time.Parse(DatestampLayout, *val)
	_, err2 := time.Parse(types.LastUpdatedLayout, *val)
	return err1 == nil || err2 == nil
}

func isValidSlugPtr(val *string, ctx zog.Ctx) bool {
	return val != nil && slug.IsSlug(*val)
}

// ItemRecordSchema validates the top level of an ItemRecord (using Go field names).
var ItemRecordSchema = zog.Struct(zog.Schema{
	"ID":          zog.Int().Required().GTE(1, zog.Message("id must be a positive integer")),
	"Name":        zog.String().Required().Min(1, zog.Message("name must be a non-empty string")),
	"Icon":        zog.String().Required().Min(1, zog.Message("icon must be a non-empty string")),
	"LastUpdated": zog.String().Required().TestFunc(isValidTimestampPtr, zog.Message("last_updated must be a 'YYYY-MM-DD HH:MM:SS' timestamp")),
})

// ItemSummarySchema validates a catalogue entry.
var ItemSummarySchema = zog.Struct(zog.Schema{
	"ID":          zog.Int().Required().GTE(1, zog.Message("id must be a positive integer")),
	"Name":        zog.String().Required().Min(1, zog.Message("name must be a non-empty string")),
	"Icon":        zog.String().Required().Min(1, zog.Message("icon must be a non-empty string")),
	"Slug":        zog.String().Required().TestFunc(isValidSlugPtr, zog.Message("slug must be lowercase letters, digits and hyphens")),
	"UpdatedDate": zog.String().Required().TestFunc(isValidTimestampPtr, zog.Message("updated-date must be a 'YYYY-MM-DD HH:MM:SS' timestamp")),
})

// CatalogueSchema validates a Catalogue. Total is checked against the list separately.
var CatalogueSchema = zog.Struct(zog.Schema{
	"Spec": zog.Struct(zog.Schema{
		"Version": zog.Int().Required().GTE(1, zog.Message("spec version must be >= 1")),
	}).Required(),
	"Datestamp":       zog.String().Required().TestFunc(isValidDatestampPtr, zog.Message("datestamp must be a valid date string")),
	"Total":           zog.Int().GTE(0, zog.Message("total must be a non-negative integer")),
	"ItemSummaryList": zog.Slice(ItemSummarySchema),
})
