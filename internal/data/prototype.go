package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Prototype is one poolable entity template.
type Prototype struct {
	Name      string   `yaml:"name"`
	Path      string   `yaml:"path"`
	PoolSize  int      `yaml:"pool_size"` // 0 = level default
	Growable  bool     `yaml:"growable"`
	Temporary *bool    `yaml:"temporary"` // nil = level default
	Scale     float64  `yaml:"scale"`
	Hooks     []string `yaml:"hooks"` // attachment names built per instance
}

type prototypeListFile struct {
	Prototypes []Prototype `yaml:"prototypes"`
}

// PrototypeTable holds prototypes indexed by name.
type PrototypeTable struct {
	byName map[string]*Prototype
}

// LoadPrototypeTable loads prototype definitions from a YAML file.
func LoadPrototypeTable(path string) (*PrototypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prototypes: %w", err)
	}
	return ParsePrototypeTable(raw)
}

// ParsePrototypeTable parses the YAML form of LoadPrototypeTable.
func ParsePrototypeTable(raw []byte) (*PrototypeTable, error) {
	var f prototypeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prototypes: %w", err)
	}
	t := &PrototypeTable{byName: make(map[string]*Prototype, len(f.Prototypes))}
	for i := range f.Prototypes {
		p := &f.Prototypes[i]
		if p.Name == "" {
			return nil, fmt.Errorf("parse prototypes: entry %d has no name", i)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("parse prototypes: duplicate name %q", p.Name)
		}
		if p.Scale == 0 {
			p.Scale = 1
		}
		t.byName[p.Name] = p
	}
	return t, nil
}

// Get returns a prototype by name, or nil if not found.
func (t *PrototypeTable) Get(name string) *Prototype {
	return t.byName[name]
}

// Count returns the number of loaded prototypes.
func (t *PrototypeTable) Count() int {
	return len(t.byName)
}

// Names returns every prototype name, sorted.
func (t *PrototypeTable) Names() []string {
	out := make([]string, 0, len(t.byName))
	for n := range t.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
