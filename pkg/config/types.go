package config

import "time"

// NodeConfig is the umbrella configuration for one node process. It is
// assembled by Initialize from CLI flags, an optional YAML file, and
// built-in defaults, in that order of precedence.
type NodeConfig struct {
	// HostMode selects address-resolution strategy; Host is only consulted
	// when HostMode is HostModeExplicit.
	HostMode HostMode `yaml:"host_mode" validate:"required,oneof=public local addr"`
	Host     string   `yaml:"host"`

	// Port is the router bind port. It may be incremented on bind conflict
	// unless StrictPort is set.
	Port       int  `yaml:"port" validate:"required,min=1,max=65535"`
	StrictPort bool `yaml:"strict_port"`

	// Bootstrap lists peer URIs (tcp://host:port) contacted once at startup.
	Bootstrap []string `yaml:"bootstrap" validate:"dive,required"`

	// MetricsDir is the root directory for per-node metrics snapshot files.
	MetricsDir string `yaml:"metrics_dir" validate:"required"`
	// ScenariosDir is where scenario sources referenced by spec strings live.
	// Opaque to the core; forwarded to the ScenarioResolver.
	ScenariosDir string `yaml:"scenarios_dir"`

	// Job preloads a single scenario spec at startup, same as --job.
	Job string `yaml:"job,omitempty"`

	Gossip    *GossipConfig    `yaml:"gossip"`
	Transport *TransportConfig `yaml:"transport"`
	Scheduler *SchedulerConfig `yaml:"scheduler"`
	Retention *RetentionConfig `yaml:"retention"`

	Verbose bool `yaml:"verbose"`
	Stats   bool `yaml:"stats"`
}

// GossipConfig controls the anti-entropy loop in pkg/node.
type GossipConfig struct {
	// Interval between gossip rounds.
	Interval time.Duration `yaml:"interval" validate:"required"`
	// Fanout is the number of random peers contacted per round.
	Fanout int `yaml:"fanout" validate:"required,min=1"`
}

// TransportConfig controls the dealer/router socket layer in pkg/transport.
type TransportConfig struct {
	PollTimeout      time.Duration `yaml:"poll_timeout" validate:"required"`
	MaxBindAttempts  int           `yaml:"max_bind_attempts" validate:"required,min=1"`
	MaxPayloadBytes  int           `yaml:"max_payload_bytes" validate:"required,min=1"`
	CompressionLevel int           `yaml:"compression_level"`
}

// SchedulerConfig controls pkg/scheduler's poll loop over the scenarios CRDT.
type SchedulerConfig struct {
	// PollInterval is how often the scheduler checks state["scenarios"] for
	// new entries and prunes finished ScenarioManagers.
	PollInterval time.Duration `yaml:"poll_interval" validate:"required"`
}
