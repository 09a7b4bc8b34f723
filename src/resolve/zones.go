package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// DefaultZones are the zones most items drop in.
var DefaultZones = map[int]string{
	3429: "Ruins of Ahn'Qiraj",
	3428: "Temple of Ahn'Qiraj",
	2677: "Blackwing Lair",
	2717: "Molten Core",
	3456: "Naxxramas",
	2437: "Onyxia's Lair",
	309:  "Zul'Gurub",
	2057: "Scholomance",
	2017: "Stratholme",
	1584: "Blackrock Depths",
	1583: "Blackrock Spire",
	2557: "Dire Maul",
	3703: "Lower Karazhan Halls",
	46:   "Burning Steppes",
	1377: "Silithus",
	41:   "Deadwind Pass",
	618:  "Winterspring",
	139:  "Eastern Plaguelands",
}

// ZoneFallback is the label used for a zone that isn't in the table.
func ZoneFallback(zoneID int) string {
	return fmt.Sprintf("Zone %d", zoneID)
}

// ZoneTable is a static zone id => name mapping. It is read-only once created.
type ZoneTable struct {
	zones map[int]string
}

// NewZoneTable creates a table of the default zones with extra zones merged over them.
func NewZoneTable(extra map[int]string) *ZoneTable {
	zones := maps.Clone(DefaultZones)
	maps.Copy(zones, extra)
	return &ZoneTable{zones: zones}
}

// ResolveZone returns the name of a zone, or "Zone <id>" if it's unknown.
func (t *ZoneTable) ResolveZone(zoneID int) string {
	if name, ok := t.zones[zoneID]; ok {
		return name
	}
	return ZoneFallback(zoneID)
}

// Len is the number of known zones.
func (t *ZoneTable) Len() int {
	return len(t.zones)
}

// LoadZones reads a {"<zone id>": "<zone name>"} file. Comments and trailing commas are allowed.
// A missing file is not an error, it just has no zones. Keys that aren't integers are skipped.
func LoadZones(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[int]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read zones file: %w", err)
	}

	var raw map[string]string
	if err := json5.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse zones file '%s': %w", path, err)
	}

	zones := make(map[int]string, len(raw))
	for key, name := range raw {
		zoneID, err := strconv.Atoi(key)
		if err != nil {
			slog.Warn("skipping zone with non-numeric id", "zone-id", key, "file", path)
			continue
		}
		zones[zoneID] = name
	}
	return zones, nil
}
