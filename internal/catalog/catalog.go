package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnknownLevel is the rank given to instance ids the catalog has never
// heard of. It is large enough that unknown instances always sort last.
const UnknownLevel = 1 << 30

// Category classifies an instance for display grouping.
type Category string

const (
	CategoryEndgame  Category = "endgame"
	CategoryLeveling Category = "leveling"
	CategoryVersus   Category = "versus"
)

// Endgame thresholds: level-capped content with a real gear requirement.
const (
	endgameLevel     = 60
	endgameItemLevel = 138
)

type dungeonEntry struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Level        int    `yaml:"level"`
	MinItemLevel int    `yaml:"min_item_level"`
}

type battlegroundEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	MinLevel int    `yaml:"min_level"`
}

// LegacyGroup is the rotating bundle of old dungeons that the matcher
// reports as one entry. SyntheticID is reserved outside the normal id
// range and stands in for the whole group.
type LegacyGroup struct {
	Name        string   `yaml:"name"`
	SyntheticID string   `yaml:"synthetic_id"`
	MinLevel    int      `yaml:"min_level"`
	IDs         []string `yaml:"ids"`
}

type catalogFile struct {
	Dungeons      []dungeonEntry      `yaml:"dungeons"`
	Battlegrounds []battlegroundEntry `yaml:"battlegrounds"`
	LegacyGroup   LegacyGroup         `yaml:"legacy_group"`
}

// Catalog maps instance ids to display and matchmaking metadata. It is
// loaded once at startup and read-only afterwards.
type Catalog struct {
	dungeons      map[string]dungeonEntry
	battlegrounds map[string]battlegroundEntry
	legacy        LegacyGroup
}

// Load reads the catalog YAML at path.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds a Catalog from raw YAML.
func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{
		dungeons:      make(map[string]dungeonEntry, len(file.Dungeons)+1),
		battlegrounds: make(map[string]battlegroundEntry, len(file.Battlegrounds)),
		legacy:        file.LegacyGroup,
	}

	for _, d := range file.Dungeons {
		if d.ID == "" {
			return nil, fmt.Errorf("dungeon entry %q has no id", d.Name)
		}
		c.dungeons[d.ID] = d
	}
	for _, b := range file.Battlegrounds {
		if b.ID == "" {
			return nil, fmt.Errorf("battleground entry %q has no id", b.Name)
		}
		c.battlegrounds[b.ID] = b
	}

	// The synthetic group queues like a dungeon: give it a dungeon entry
	// so lookups and ordering treat it uniformly.
	if lg := file.LegacyGroup; lg.SyntheticID != "" {
		c.dungeons[lg.SyntheticID] = dungeonEntry{
			ID:    lg.SyntheticID,
			Name:  lg.Name,
			Level: lg.MinLevel,
		}
	}

	return c, nil
}

// Legacy returns the legacy/rotating content group.
func (c *Catalog) Legacy() LegacyGroup { return c.legacy }

// Name returns the display name for id, or the raw id when unknown.
func (c *Catalog) Name(id string) string {
	if d, ok := c.dungeons[id]; ok {
		return d.Name
	}
	if b, ok := c.battlegrounds[id]; ok {
		return b.Name
	}
	return id
}

// DisplayName renders a dungeon as "[level] Name"; battlegrounds and
// unknown ids render without a level prefix.
func (c *Catalog) DisplayName(id string) string {
	if d, ok := c.dungeons[id]; ok {
		return fmt.Sprintf("[%d] %s", d.Level, d.Name)
	}
	if b, ok := c.battlegrounds[id]; ok {
		return b.Name
	}
	return id
}

// Level returns the character level requirement, or UnknownLevel.
func (c *Catalog) Level(id string) int {
	if d, ok := c.dungeons[id]; ok {
		return d.Level
	}
	if b, ok := c.battlegrounds[id]; ok {
		return b.MinLevel
	}
	return UnknownLevel
}

// ItemLevel returns the gear requirement, or UnknownLevel.
func (c *Catalog) ItemLevel(id string) int {
	if d, ok := c.dungeons[id]; ok {
		return d.MinItemLevel
	}
	return UnknownLevel
}

// Category classifies id. Unknown ids default to leveling content.
func (c *Catalog) Category(id string) Category {
	if _, ok := c.battlegrounds[id]; ok {
		return CategoryVersus
	}
	if d, ok := c.dungeons[id]; ok {
		if d.Level >= endgameLevel && d.MinItemLevel >= endgameItemLevel {
			return CategoryEndgame
		}
	}
	return CategoryLeveling
}

// Known reports whether the catalog has an entry for id.
func (c *Catalog) Known(id string) bool {
	if _, ok := c.dungeons[id]; ok {
		return true
	}
	_, ok := c.battlegrounds[id]
	return ok
}
