package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type AreaDef struct {
	X float64 `yaml:"x"` // offset from the spawner origin
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

type HomePosDef struct {
	Method string  `yaml:"method"` // sphere | line
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type TriggerDef struct {
	Type  string  `yaml:"type"` // xp | time
	Value float64 `yaml:"value"`
}

type WeightedDef struct {
	Name   string  `yaml:"name"`
	Chance float64 `yaml:"chance"`
}

// SpawnerDef is one spawner placed in the level.
type SpawnerDef struct {
	ID               int64         `yaml:"id"`
	Kind             string        `yaml:"kind"` // group | roulette | cluster | cage
	Prototype        string        `yaml:"prototype"`
	Prototypes       []WeightedDef `yaml:"prototypes"`
	X                float64       `yaml:"x"`
	Y                float64       `yaml:"y"`
	Area             *AreaDef      `yaml:"area"`
	Quantity         IntRange      `yaml:"quantity"`
	Scale            FloatRange    `yaml:"scale"`
	SpawnTime        FloatRange    `yaml:"spawn_time"` // seconds
	HomePos          HomePosDef    `yaml:"home_pos"`
	Radius           float64       `yaml:"radius"`
	Rails            int           `yaml:"rails"`
	Activation       []TriggerDef  `yaml:"activation"`
	Deactivation     []TriggerDef  `yaml:"deactivation"`
	MaxSpawns        int           `yaml:"max_spawns"`
	Progressive      *bool         `yaml:"progressive"`
	ActivationChance *float64      `yaml:"activation_chance"` // 0-100, nil = always
	FlockBonus       int           `yaml:"flock_bonus"`
	Script           string        `yaml:"script"` // Lua condition function
}

// PrototypeNames lists every prototype the spawner draws from.
func (d *SpawnerDef) PrototypeNames() []string {
	if d.Prototype != "" {
		return []string{d.Prototype}
	}
	out := make([]string, 0, len(d.Prototypes))
	for _, p := range d.Prototypes {
		out = append(out, p.Name)
	}
	return out
}

// Validate checks fields that the loader cannot default.
func (d *SpawnerDef) Validate() error {
	switch d.Kind {
	case "group", "cage":
		if d.Prototype == "" {
			return fmt.Errorf("spawner %d: %s needs a prototype", d.ID, d.Kind)
		}
	case "roulette", "cluster":
		if len(d.Prototypes) == 0 {
			return fmt.Errorf("spawner %d: %s needs prototypes", d.ID, d.Kind)
		}
	default:
		return fmt.Errorf("spawner %d: unknown kind %q", d.ID, d.Kind)
	}
	if d.Quantity.Max < d.Quantity.Min {
		return fmt.Errorf("spawner %d: quantity max below min", d.ID)
	}
	if d.SpawnTime.Max < d.SpawnTime.Min {
		return fmt.Errorf("spawner %d: spawn_time max below min", d.ID)
	}
	return nil
}

type spawnerListFile struct {
	Spawners []SpawnerDef `yaml:"spawners"`
}

// LoadSpawnerList loads spawner definitions from a YAML file.
func LoadSpawnerList(path string) ([]SpawnerDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawners: %w", err)
	}
	return ParseSpawnerList(raw)
}

// ParseSpawnerList parses and validates the YAML form of LoadSpawnerList.
func ParseSpawnerList(raw []byte) ([]SpawnerDef, error) {
	var f spawnerListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawners: %w", err)
	}
	seen := make(map[int64]bool, len(f.Spawners))
	for i := range f.Spawners {
		d := &f.Spawners[i]
		if d.Kind == "" {
			d.Kind = "group"
		}
		if d.Quantity.Min == 0 && d.Quantity.Max == 0 {
			d.Quantity = IntRange{Min: 1, Max: 1}
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("parse spawners: %w", err)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("parse spawners: duplicate id %d", d.ID)
		}
		seen[d.ID] = true
	}
	return f.Spawners, nil
}
