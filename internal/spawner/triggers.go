package spawner

import (
	"fmt"
	"strings"
)

// TriggerType selects what a trigger compares against.
type TriggerType int

const (
	TriggerXP TriggerType = iota
	TriggerTime
)

// ParseTriggerType accepts "xp" and "time".
func ParseTriggerType(s string) (TriggerType, error) {
	switch strings.ToLower(s) {
	case "xp":
		return TriggerXP, nil
	case "time":
		return TriggerTime, nil
	}
	return 0, fmt.Errorf("unknown trigger type %q", s)
}

type Trigger struct {
	Type  TriggerType
	Value float64
}

func (t Trigger) reached(time, score float64) bool {
	if t.Type == TriggerXP {
		return score >= t.Value
	}
	return time >= t.Value
}

// Triggers are the data-driven spawn conditions. A spawner with no
// activation triggers is active from the start; any one reached activation
// trigger is enough. Reaching any deactivation trigger disables it.
type Triggers struct {
	Activation   []Trigger
	Deactivation []Trigger
}

func (t Triggers) IsReadyToSpawn(time, score float64) bool {
	if len(t.Activation) == 0 {
		return true
	}
	for _, tr := range t.Activation {
		if tr.reached(time, score) {
			return true
		}
	}
	return false
}

func (t Triggers) IsReadyToDisable(time, score float64) bool {
	for _, tr := range t.Deactivation {
		if tr.reached(time, score) {
			return true
		}
	}
	return false
}
