package state

import "github.com/ryan-h265/ironswarm/pkg/crdt"

// ScenarioEntry is the scenarios extras shape. Scenario duplicates the
// element key (the spec string) so gossip-only consumers (e.g. a dashboard)
// don't need to separately track the key.
type ScenarioEntry struct {
	InitTime float64
	Scenario string
}

// ScenarioRecord pairs a scenario spec key with its entry.
type ScenarioRecord struct {
	Spec  string
	Entry ScenarioEntry
}

// RegisterScenario adds spec to the scenarios set at ts (0 = now). Called
// once at node construction for a preloaded --job, and by whatever
// out-of-scope discovery/upload surface admits new scenarios.
func (s *Store) RegisterScenario(spec string, initTime float64, ts float64) {
	s.Scenarios.Add(spec, ts, crdt.Metadata{
		"init_time": initTime,
		"scenario":  spec,
	})
}

// ScenarioEntries returns every currently-present scenario entry, sorted by spec.
func (s *Store) ScenarioEntries() []ScenarioRecord {
	entries := s.Scenarios.Entries()
	out := make([]ScenarioRecord, 0, len(entries))
	for _, e := range entries {
		initTime, _ := toFloat(e.Entry.Extras["init_time"])
		scenario, _ := e.Entry.Extras["scenario"].(string)
		if scenario == "" {
			scenario = e.Key
		}
		out = append(out, ScenarioRecord{
			Spec: e.Key,
			Entry: ScenarioEntry{
				InitTime: initTime,
				Scenario: scenario,
			},
		})
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
