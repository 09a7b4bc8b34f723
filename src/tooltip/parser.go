// Package tooltip turns the text of an item tooltip into an ItemDescription.
//
// The tooltip markup is not a stable contract, so parsing is permissive: lines that are
// not understood are dropped and parsing always produces a (possibly sparse) description.
package tooltip

import (
	"strings"

	"github.com/ogri-la/twowdb-fetch-go/src/types"
)

// Lines splits tooltip text into trimmed, non-empty lines.
func Lines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Parse builds an ItemDescription from tooltip text and the style token attached to the
// item name (e.g. "q4"). The first line is always the item name.
func Parse(text string, qualityToken string) types.ItemDescription {
	desc := types.NewItemDescription()

	lines := Lines(text)
	if len(lines) == 0 {
		return desc
	}

	desc.RawText = strings.Join(lines, "\n")
	desc.Name = lines[0]
	desc.SetQuality(types.QualityFromStyleToken(qualityToken))

	for i := 1; i < len(lines); {
		next, hasNext := "", i+1 < len(lines)
		if hasNext {
			next = lines[i+1]
		}
		line := Classify(lines[i], next, hasNext)
		apply(&desc, line)
		i += line.Consumed
	}

	return desc
}

// apply folds a classified line into the description.
func apply(desc *types.ItemDescription, line Line) {
	switch line.Kind {
	case ReputationLine:
		desc.Requirements.Reputation = line.Reputation
	case UniqueEquippedLine:
		desc.Requirements.UniqueEquipped = true
	case BindingLine:
		desc.Binding = line.Text
	case SlotLine:
		desc.Slot = line.Text
		if line.Subtype != "" {
			desc.ArmorType = line.Subtype
		}
	case ArmorLine:
		desc.SetArmor(line.Value)
	case StatLine:
		if line.Key == types.ArmorStat {
			desc.SetArmor(line.Value)
			return
		}
		desc.Stats[line.Key] = line.Value
	case ResistanceLine:
		desc.Resistances[line.Key] = line.Value
	case LevelLine:
		level := line.Value
		desc.LevelRequirement = &level
	case ClassesLine:
		desc.Classes = line.Classes
		desc.Requirements.ClassRequirement = append([]string{}, line.Classes...)
	case EffectLine:
		desc.Effects = append(desc.Effects, line.Effect)
	case SetBonusLine:
		desc.SetBonuses = append(desc.SetBonuses, line.Text)
	}
}
