package listing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var idRegex = regexp.MustCompile(`id:\s*(\d+)`)
var nameRegex = regexp.MustCompile(`name:\s*'((?:[^'\\]|\\.)+)'`)
var qualityRegex = regexp.MustCompile(`quality:\s*(\d+)`)
var percentRegex = regexp.MustCompile(`percent:\s*(\d+)`)
var locationRegex = regexp.MustCompile(`location:\s*\[(\d+)\]`)
var reagentsRegex = regexp.MustCompile(`reagents:\s*(\[\s*(?:\[\s*\d+\s*,\s*\d+\s*\]\s*,?\s*)*\])`)
var reagentPairRegex = regexp.MustCompile(`\[\s*(\d+)\s*,\s*(\d+)\s*\]`)

// ReagentPair is an unresolved reagent: an item id and how many are needed.
type ReagentPair struct {
	ItemID int
	Count  int
}

// Fields are the values found in a single listview entry.
// Every field is optional, a nil pointer or empty value means the field wasn't present.
type Fields struct {
	ID       *int
	Name     string
	Quality  *int
	Percent  *int
	Location *int

	// HasReagents is true when a reagents list was present, even an empty one.
	HasReagents bool
	Reagents    []ReagentPair
}

// ExtractFields pulls the known fields out of the body of one entry, e.g.
// "id:19019,name:'5Thunderfury',quality:5". Fields that don't match are skipped.
func ExtractFields(entry string) Fields {
	fields := Fields{
		ID:       matchInt(idRegex, entry),
		Quality:  matchInt(qualityRegex, entry),
		Percent:  matchInt(percentRegex, entry),
		Location: matchInt(locationRegex, entry),
	}

	if matches := nameRegex.FindStringSubmatch(entry); matches != nil {
		fields.Name = CleanName(matches[1])
	}

	if matches := reagentsRegex.FindStringSubmatch(entry); matches != nil {
		fields.HasReagents = true
		fields.Reagents = []ReagentPair{}
		for _, pair := range reagentPairRegex.FindAllStringSubmatch(matches[1], -1) {
			itemID, err := strconv.Atoi(pair[1])
			if err != nil {
				continue
			}
			count, err := strconv.Atoi(pair[2])
			if err != nil || count <= 0 {
				continue
			}
			fields.Reagents = append(fields.Reagents, ReagentPair{ItemID: itemID, Count: count})
		}
	}

	return fields
}

// CleanName undoes the escaping of a quoted name and removes the markers the site adds:
// a single digit before a letter-led name and a leading "@" on crafted-item names.
// The digit prefix has been observed on names in listings but its origin is unknown.
func CleanName(raw string) string {
	name := strings.ReplaceAll(raw, `\'`, `'`)
	name = strings.ReplaceAll(name, `\"`, `"`)

	first, size := utf8.DecodeRuneInString(name)
	if unicode.IsDigit(first) {
		if second, _ := utf8.DecodeRuneInString(name[size:]); unicode.IsLetter(second) {
			name = name[size:]
		}
	}

	return strings.TrimPrefix(name, "@")
}

func matchInt(re *regexp.Regexp, text string) *int {
	matches := re.FindStringSubmatch(text)
	if matches == nil {
		return nil
	}
	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil
	}
	return &value
}
