package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// scenarioDefaultsYAML is the on-disk shape of an optional
// scenario-defaults.yaml dropped in the scenarios directory, overriding the
// built-in interval/delay/separation defaults for every scenario the
// resolver produces on this node.
type scenarioDefaultsYAML struct {
	IntervalSeconds          *float64 `yaml:"interval_seconds,omitempty"`
	DelaySeconds             *float64 `yaml:"delay_seconds,omitempty"`
	JourneySeparationSeconds *float64 `yaml:"journey_separation_seconds,omitempty"`
}

// LoadScenarioDefaults reads an optional scenario-defaults.yaml from dir and
// merges it onto the built-in ScenarioDefaults. A missing file is not an
// error; it simply yields the built-in defaults.
func LoadScenarioDefaults(dir string) (*ScenarioDefaults, error) {
	defaults := DefaultScenarioDefaults()
	if dir == "" {
		return defaults, nil
	}

	path := dir + "/scenario-defaults.yaml"
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return nil, NewLoadError(path, err)
	}

	var parsed scenarioDefaultsYAML
	if err := yaml.Unmarshal(ExpandEnv(raw), &parsed); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	override := secondsOverride(parsed)
	merged, err := mergeScenarioDefaults(defaults, override)
	if err != nil {
		return nil, fmt.Errorf("failed to merge scenario defaults: %w", err)
	}
	return merged, nil
}

func secondsOverride(parsed scenarioDefaultsYAML) *ScenarioDefaults {
	if parsed.IntervalSeconds == nil && parsed.DelaySeconds == nil && parsed.JourneySeparationSeconds == nil {
		return nil
	}
	out := &ScenarioDefaults{}
	if parsed.IntervalSeconds != nil {
		out.IntervalSeconds = secondsToDuration(*parsed.IntervalSeconds)
	}
	if parsed.DelaySeconds != nil {
		out.DelaySeconds = secondsToDuration(*parsed.DelaySeconds)
	}
	if parsed.JourneySeparationSeconds != nil {
		out.JourneySeparationSeconds = secondsToDuration(*parsed.JourneySeparationSeconds)
	}
	return out
}
