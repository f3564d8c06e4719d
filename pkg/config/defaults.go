package config

import "time"

// DefaultNodeConfig returns the built-in node defaults. Initialize merges a
// caller-supplied NodeConfig on top of this with mergo.
func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		HostMode:     HostModePublic,
		Port:         42042,
		MetricsDir:   "./metrics",
		ScenariosDir: "./scenarios",
		Gossip:       DefaultGossipConfig(),
		Transport:    DefaultTransportConfig(),
		Scheduler:    DefaultSchedulerConfig(),
		Retention:    DefaultRetentionConfig(),
	}
}

// DefaultGossipConfig returns the built-in gossip defaults.
func DefaultGossipConfig() *GossipConfig {
	return &GossipConfig{
		Interval: 2 * time.Second,
		Fanout:   4,
	}
}

// DefaultTransportConfig returns the built-in transport defaults.
func DefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		PollTimeout:      2 * time.Second,
		MaxBindAttempts:  100,
		MaxPayloadBytes:  10 * 1024 * 1024,
		CompressionLevel: 0,
	}
}

// DefaultSchedulerConfig returns the built-in scheduler defaults.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval: 1 * time.Second,
	}
}
