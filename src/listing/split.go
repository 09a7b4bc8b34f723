package listing

import (
	"regexp"
	"strings"
)

// entryDelimiter separates top-level entries of a listview data array.
// Reagent sub-lists use square brackets, so "},{" never occurs inside a single entry.
// Known limitation: a name containing the literal text "},{" would be split in two.
var entryDelimiter = regexp.MustCompile(`\}\s*,\s*\{`)

// Split takes the text of a data array, "[{...},{...}]", and returns the body of each
// entry with its braces removed. An empty array has no entries.
func Split(span string) []string {
	span = strings.TrimSpace(span)
	span = strings.TrimPrefix(span, "[")
	span = strings.TrimSuffix(span, "]")
	span = strings.TrimSpace(span)
	if span == "" {
		return nil
	}

	span = strings.TrimPrefix(span, "{")
	span = strings.TrimSuffix(span, "}")
	return entryDelimiter.Split(span, -1)
}
