package types

import (
	"fmt"
	"strings"
)

// Quality is the rarity of an item, ordered from Poor to Legendary.
type Quality int

const (
	PoorQuality Quality = iota
	CommonQuality
	UncommonQuality
	RareQuality
	EpicQuality
	LegendaryQuality
)

// qualityTable pairs each quality with its label and display class.
// Note: indexed by Quality, keep in order.
var qualityTable = [...]struct {
	label    string
	cssClass string
}{
	{"Poor", "q-poor"},
	{"Common", "q-common"},
	{"Uncommon", "q-uncommon"},
	{"Rare", "q-rare"},
	{"Epic", "q-epic"},
	{"Legendary", "q-legendary"},
}

var AllQualities = []Quality{
	PoorQuality, CommonQuality, UncommonQuality,
	RareQuality, EpicQuality, LegendaryQuality,
}

// Valid reports whether q is one of the six known qualities.
func (q Quality) Valid() bool {
	return q >= PoorQuality && q <= LegendaryQuality
}

func (q Quality) String() string {
	if !q.Valid() {
		return qualityTable[CommonQuality].label
	}
	return qualityTable[q].label
}

// CSSClass returns the display class paired with q, e.g. "q-epic".
func (q Quality) CSSClass() string {
	if !q.Valid() {
		return qualityTable[CommonQuality].cssClass
	}
	return qualityTable[q].cssClass
}

func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *Quality) UnmarshalText(text []byte) error {
	for _, candidate := range AllQualities {
		if strings.EqualFold(candidate.String(), string(text)) {
			*q = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown quality: %s", text)
}

// QualityFromCode maps the numeric quality code used by the site ("0".."5") to a Quality.
// Unknown codes are Common.
func QualityFromCode(code string) Quality {
	if len(code) == 1 && code[0] >= '0' && code[0] <= '5' {
		return Quality(code[0] - '0')
	}
	return CommonQuality
}

// QualityFromStyleToken maps the style class attached to an item name ("q4") to a Quality.
// Absent or unrecognised tokens are Common.
func QualityFromStyleToken(token string) Quality {
	code, ok := strings.CutPrefix(strings.TrimSpace(token), "q")
	if !ok {
		return CommonQuality
	}
	return QualityFromCode(code)
}

// Standing is a reputation level required to use an item.
type Standing string

const (
	NeutralStanding  Standing = "Neutral"
	FriendlyStanding Standing = "Friendly"
	HonoredStanding  Standing = "Honored"
	ReveredStanding  Standing = "Revered"
	ExaltedStanding  Standing = "Exalted"
)

var AllStandings = []Standing{
	NeutralStanding, FriendlyStanding, HonoredStanding, ReveredStanding, ExaltedStanding,
}

// EffectType is the trigger of an item effect line.
type EffectType string

const (
	EquipEffect       EffectType = "Equip"
	UseEffect         EffectType = "Use"
	ChanceOnHitEffect EffectType = "Chance on hit"
)

var AllEffectTypes = []EffectType{EquipEffect, UseEffect, ChanceOnHitEffect}

type Effect struct {
	Type        EffectType `json:"type"`
	Description string     `json:"description"`
}

type Reputation struct {
	Faction  string   `json:"faction"`
	Standing Standing `json:"level"`
}

type Requirements struct {
	Reputation       *Reputation `json:"reputation"`
	ClassRequirement []string    `json:"class_req"`
	UniqueEquipped   bool        `json:"unique_equipped"`
}

// ItemDescription is the structured form of a single item tooltip.
// Key names follow the item files written by earlier versions of the tool.
type ItemDescription struct {
	Name             string         `json:"name"`
	Quality          Quality        `json:"quality"`
	CSSClass         string         `json:"css_class"`
	Binding          string         `json:"binding,omitempty"`
	Slot             string         `json:"slot,omitempty"`
	ArmorType        string         `json:"armor_type,omitempty"`
	ArmorValue       *int           `json:"armor_value"`
	Stats            map[string]int `json:"stats_normalized"`
	Resistances      map[string]int `json:"resistances"`
	Effects          []Effect       `json:"effects"`
	SetBonuses       []string       `json:"set_bonuses"`
	Classes          []string       `json:"classes"`
	LevelRequirement *int           `json:"level_req"`
	Requirements     Requirements   `json:"requirements"`
	RawText          string         `json:"raw_text"`
}

// NewItemDescription returns an empty description of Common quality.
func NewItemDescription() ItemDescription {
	d := ItemDescription{
		Stats:       map[string]int{},
		Resistances: map[string]int{},
		Effects:     []Effect{},
		SetBonuses:  []string{},
		Classes:     []string{},
		Requirements: Requirements{
			ClassRequirement: []string{},
		},
	}
	d.SetQuality(CommonQuality)
	return d
}

// SetQuality sets the quality and its paired display class together.
func (d *ItemDescription) SetQuality(q Quality) {
	if !q.Valid() {
		q = CommonQuality
	}
	d.Quality = q
	d.CSSClass = q.CSSClass()
}

// SetArmor records an armor value, keeping the "armor" stat in step with it.
func (d *ItemDescription) SetArmor(value int) {
	d.ArmorValue = &value
	d.Stats[ArmorStat] = value
}

// ArmorStat is the normalised stat key for armor.
const ArmorStat = "armor"
