package config

import "dario.cat/mergo"

// mergeNodeConfig merges a user-supplied NodeConfig onto the built-in
// defaults, with user-supplied fields winning. Nested pointers (Gossip,
// Transport, Scheduler, Retention) are merged field-by-field so that a user
// who only overrides one nested field keeps the rest of the defaults.
func mergeNodeConfig(defaults *NodeConfig, user *NodeConfig) (*NodeConfig, error) {
	merged := *defaults
	if user == nil {
		return &merged, nil
	}
	if err := mergo.Merge(&merged, user, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &merged, nil
}

// mergeScenarioDefaults merges built-in scenario timing defaults with an
// optional resolver-supplied override, user values winning.
func mergeScenarioDefaults(defaults *ScenarioDefaults, override *ScenarioDefaults) (*ScenarioDefaults, error) {
	merged := *defaults
	if override == nil {
		return &merged, nil
	}
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &merged, nil
}
