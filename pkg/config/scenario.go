package config

import "time"

// ScenarioDefaults holds the built-in values applied to a Scenario when its
// resolved spec omits them: a 30s work interval, a 30s startup delay, and
// 1s between sub-interval spawns.
type ScenarioDefaults struct {
	IntervalSeconds          time.Duration `yaml:"interval_seconds"`
	DelaySeconds             time.Duration `yaml:"delay_seconds"`
	JourneySeparationSeconds time.Duration `yaml:"journey_separation_seconds"`
}

// DefaultScenarioDefaults returns the built-in scenario timing defaults.
func DefaultScenarioDefaults() *ScenarioDefaults {
	return &ScenarioDefaults{
		IntervalSeconds:          30 * time.Second,
		DelaySeconds:             30 * time.Second,
		JourneySeparationSeconds: time.Second,
	}
}

// secondsToDuration converts a fractional-seconds YAML value (as used by
// journey_separation_seconds, which may be sub-second) to a time.Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
