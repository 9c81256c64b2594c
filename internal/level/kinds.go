package level

import (
	"fmt"

	"github.com/l1jgo/spawnpool/internal/data"
	"github.com/l1jgo/spawnpool/internal/spatial"
	"github.com/l1jgo/spawnpool/internal/spawner"
)

// kindFor turns a spawner definition into its placement strategy.
func kindFor(d *data.SpawnerDef, protos *data.PrototypeTable) (spawner.Kind, error) {
	immediate := d.Progressive != nil && !*d.Progressive
	qty := spawner.IntRange{Min: d.Quantity.Min, Max: d.Quantity.Max}
	scale := spawner.Range{Min: d.Scale.Min, Max: d.Scale.Max}

	switch d.Kind {
	case "group":
		sep, err := spawner.ParseSeparation(d.HomePos.Method)
		if err != nil {
			return nil, fmt.Errorf("spawner %d: %w", d.ID, err)
		}
		return &spawner.Group{
			Proto:    protoOf(d.Prototype, protos),
			Quantity: qty,
			Scale:    scale,
			Home: spawner.HomePos{
				Method:   sep,
				Distance: spawner.Range{Min: d.HomePos.Min, Max: d.HomePos.Max},
			},
			Rails:     d.Rails,
			Immediate: immediate,
		}, nil
	case "roulette":
		k := &spawner.Roulette{Scale: scale, Immediate: immediate}
		for _, w := range d.Prototypes {
			k.Protos = append(k.Protos, protoOf(w.Name, protos))
		}
		return k, nil
	case "cluster":
		k := &spawner.Cluster{Quantity: qty, Scale: scale, Radius: d.Radius, Immediate: immediate}
		for _, w := range d.Prototypes {
			k.Entries = append(k.Entries, spawner.Weighted{Proto: protoOf(w.Name, protos), Chance: w.Chance})
		}
		return k, nil
	case "cage":
		return &spawner.Cage{Proto: protoOf(d.Prototype, protos)}, nil
	}
	return nil, fmt.Errorf("spawner %d: unknown kind %q", d.ID, d.Kind)
}

func protoOf(name string, protos *data.PrototypeTable) spawner.Proto {
	p := spawner.Proto{Name: name}
	if protos != nil {
		if def := protos.Get(name); def != nil {
			p.Path = def.Path
		}
	}
	return p
}

func triggersOf(d *data.SpawnerDef) (spawner.Triggers, error) {
	var t spawner.Triggers
	for _, td := range d.Activation {
		typ, err := spawner.ParseTriggerType(td.Type)
		if err != nil {
			return t, fmt.Errorf("spawner %d activation: %w", d.ID, err)
		}
		t.Activation = append(t.Activation, spawner.Trigger{Type: typ, Value: td.Value})
	}
	for _, td := range d.Deactivation {
		typ, err := spawner.ParseTriggerType(td.Type)
		if err != nil {
			return t, fmt.Errorf("spawner %d deactivation: %w", d.ID, err)
		}
		t.Deactivation = append(t.Deactivation, spawner.Trigger{Type: typ, Value: td.Value})
	}
	return t, nil
}

func configOf(d *data.SpawnerDef) (spawner.Config, error) {
	trig, err := triggersOf(d)
	if err != nil {
		return spawner.Config{}, err
	}
	cfg := spawner.Config{
		ID:         d.ID,
		X:          d.X,
		Y:          d.Y,
		SpawnTime:  spawner.Range{Min: d.SpawnTime.Min, Max: d.SpawnTime.Max},
		MaxSpawns:  d.MaxSpawns,
		FlockBonus: d.FlockBonus,
		Triggers:   trig,
	}
	if d.Kind == "cage" && cfg.MaxSpawns == 0 {
		cfg.MaxSpawns = 1
	}
	if a := d.Area; a != nil {
		cfg.Area = spatial.Centered(d.X+a.X, d.Y+a.Y, a.W, a.H)
	}
	return cfg, nil
}
