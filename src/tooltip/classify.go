package tooltip

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

// LineKind is what a single tooltip line was recognised as.
type LineKind int

const (
	IgnoredLine LineKind = iota
	ReputationLine
	UniqueEquippedLine
	BindingLine
	SlotLine
	ArmorLine
	StatLine
	ResistanceLine
	LevelLine
	ClassesLine
	EffectLine
	SetBonusLine
)

func (k LineKind) String() string {
	switch k {
	case ReputationLine:
		return "reputation"
	case UniqueEquippedLine:
		return "unique-equipped"
	case BindingLine:
		return "binding"
	case SlotLine:
		return "slot"
	case ArmorLine:
		return "armor"
	case StatLine:
		return "stat"
	case ResistanceLine:
		return "resistance"
	case LevelLine:
		return "level"
	case ClassesLine:
		return "classes"
	case EffectLine:
		return "effect"
	case SetBonusLine:
		return "set-bonus"
	default:
		return "ignored"
	}
}

// Line is a classified tooltip line. Only the fields relevant to Kind are set.
// Consumed is 2 when the following line was folded into this one, otherwise 1.
type Line struct {
	Kind     LineKind
	Consumed int

	Text       string // binding, slot, set bonus
	Subtype    string // armor/weapon subtype following a slot
	Key        string // stat or resistance key
	Value      int    // stat, resistance, armor or level value
	Classes    []string
	Reputation *types.Reputation
	Effect     types.Effect
}

// Slots is the closed set of equipment slot labels.
var Slots = []string{
	"Head", "Neck", "Shoulder", "Back", "Chest", "Shirt", "Tabard", "Wrist",
	"Hands", "Waist", "Legs", "Feet", "Finger", "Trinket", "Main Hand", "Off Hand",
	"One-Hand", "Two-Hand", "Ranged", "Relic", "Held In Off-hand", "Projectile", "Wand",
}

// statKeys normalises the primary stats. Anything else is lower_snake_cased.
var statKeys = map[string]string{
	"Stamina":   "stamina",
	"Intellect": "intellect",
	"Strength":  "strength",
	"Agility":   "agility",
	"Spirit":    "spirit",
	"Armor":     types.ArmorStat,
}

var reputationRegex = regexp.MustCompile(`^Requires (.+?) - (Neutral|Friendly|Honored|Revered|Exalted)\b`)
var setBonusRegex = regexp.MustCompile(`^\(\d+\)\s+Set:`)
var statDeltaRegex = regexp.MustCompile(`^[+-]\d`)

var effectPrefixes = []types.EffectType{types.EquipEffect, types.UseEffect, types.ChanceOnHitEffect}

// rule recognises one kind of line. It returns false when the line is not of its kind.
type rule func(line string, next string, hasNext bool) (Line, bool)

// rules are tried in order, the first match wins.
var rules = []rule{
	reputationRule,
	uniqueEquippedRule,
	bindingRule,
	slotRule,
	armorRule,
	statDeltaRule,
	levelRule,
	classesRule,
	effectRule,
	setBonusRule,
}

// Classify recognises a single trimmed tooltip line, given the line that follows it (if any).
// Classify never fails: lines it cannot make sense of are IgnoredLine.
func Classify(line string, next string, hasNext bool) Line {
	for _, r := range rules {
		if l, ok := r(line, next, hasNext); ok {
			if l.Consumed == 0 {
				l.Consumed = 1
			}
			return l
		}
	}
	return Line{Kind: IgnoredLine, Consumed: 1}
}

func reputationRule(line, _ string, _ bool) (Line, bool) {
	matches := reputationRegex.FindStringSubmatch(line)
	if matches == nil {
		return Line{}, false
	}
	return Line{
		Kind: ReputationLine,
		Reputation: &types.Reputation{
			Faction:  matches[1],
			Standing: types.Standing(matches[2]),
		},
	}, true
}

func uniqueEquippedRule(line, _ string, _ bool) (Line, bool) {
	if line != "Unique-Equipped" {
		return Line{}, false
	}
	return Line{Kind: UniqueEquippedLine}, true
}

func bindingRule(line, _ string, _ bool) (Line, bool) {
	if !strings.Contains(line, "Binds when") && !strings.Contains(line, "Soulbound") && line != "Unique" {
		return Line{}, false
	}
	return Line{Kind: BindingLine, Text: line}, true
}

// slotRule also takes the armor/weapon subtype ("Cloth", "Sword") from the next line,
// unless that line is a stat delta or the armor/damage line.
func slotRule(line, next string, hasNext bool) (Line, bool) {
	if !slices.Contains(Slots, line) {
		return Line{}, false
	}
	l := Line{Kind: SlotLine, Text: line}
	if hasNext && !statDeltaRegex.MatchString(next) && !strings.Contains(next, "Armor") && !strings.Contains(next, "Damage") {
		l.Subtype = next
		l.Consumed = 2
	}
	return l, true
}

func armorRule(line, _ string, _ bool) (Line, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !isDigits(fields[0]) || !strings.Contains(line, "Armor") {
		return Line{}, false
	}
	value, err := strconv.Atoi(fields[0])
	if err != nil {
		return Line{}, false
	}
	return Line{Kind: ArmorLine, Key: types.ArmorStat, Value: value}, true
}

// statDeltaRule handles "+15 Stamina" and "-5 Fire Resistance".
// A delta that doesn't parse is recognised but ignored.
func statDeltaRule(line, _ string, _ bool) (Line, bool) {
	if !strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "-") {
		return Line{}, false
	}
	sign := 1
	if line[0] == '-' {
		sign = -1
	}
	amount, label, ok := strings.Cut(line[1:], " ")
	label = strings.TrimSpace(label)
	if !ok || label == "" {
		return Line{Kind: IgnoredLine}, true
	}
	value, err := strconv.Atoi(amount)
	if err != nil {
		return Line{Kind: IgnoredLine}, true
	}
	value *= sign

	if strings.Contains(label, "Resistance") {
		return Line{Kind: ResistanceLine, Key: resistanceKey(label), Value: value}, true
	}
	return Line{Kind: StatLine, Key: NormalizeStatKey(label), Value: value}, true
}

// resistanceKey lower-cases a label without the word "Resistance" or "Resistances", so "All Resistances" is "all".
func resistanceKey(label string) string {
	var words []string
	for _, word := range strings.Fields(label) {
		if word != "Resistance" && word != "Resistances" {
			words = append(words, word)
		}
	}
	return strings.ToLower(strings.Join(words, " "))
}

func levelRule(line, _ string, _ bool) (Line, bool) {
	if !strings.HasPrefix(line, "Requires Level") {
		return Line{}, false
	}
	fields := strings.Fields(line)
	value, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return Line{Kind: IgnoredLine}, true
	}
	return Line{Kind: LevelLine, Value: value}, true
}

func classesRule(line, _ string, _ bool) (Line, bool) {
	rest, ok := strings.CutPrefix(line, "Classes:")
	if !ok {
		return Line{}, false
	}
	var classes []string
	for _, class := range strings.Split(rest, ",") {
		classes = append(classes, strings.TrimSpace(class))
	}
	return Line{Kind: ClassesLine, Classes: classes}, true
}

// effectRule handles "Equip: ...", "Use: ..." and "Chance on hit: ...".
// An empty description is taken from the next line.
func effectRule(line, next string, hasNext bool) (Line, bool) {
	for _, effectType := range effectPrefixes {
		rest, ok := strings.CutPrefix(line, string(effectType)+":")
		if !ok {
			continue
		}
		l := Line{Kind: EffectLine, Effect: types.Effect{Type: effectType, Description: strings.TrimSpace(rest)}}
		if l.Effect.Description == "" && hasNext {
			l.Effect.Description = next
			l.Consumed = 2
		}
		return l, true
	}
	return Line{}, false
}

// setBonusRule handles "(2) Set: ...", joining a wrapped continuation line.
func setBonusRule(line, next string, hasNext bool) (Line, bool) {
	if !setBonusRegex.MatchString(line) {
		return Line{}, false
	}
	l := Line{Kind: SetBonusLine, Text: line}
	if hasNext && !strings.HasPrefix(next, "(") {
		l.Text = line + " " + next
		l.Consumed = 2
	}
	return l, true
}

// NormalizeStatKey maps a stat label to its key, e.g. "Stamina" => "stamina", "Attack Power" => "attack_power".
func NormalizeStatKey(label string) string {
	if key, ok := statKeys[label]; ok {
		return key
	}
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
