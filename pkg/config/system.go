package config

// CLIFlags is the parsed form of a node process's command-line surface.
// Parsing argv into this struct is the bootstrap binary's job; Initialize
// only needs the parsed result to build a NodeConfig.
type CLIFlags struct {
	Bootstrap    []string
	Host         string // "public", "local", or an explicit address
	Port         int
	Job          string
	Verbose      bool
	Stats        bool
	MetricsDir   string
	ScenariosDir string
	WebPort      int
}

// ApplyCLIFlags overlays non-zero CLI flag values onto a NodeConfig,
// mirroring the precedence Initialize documents for ironswarm.yaml: CLI flags win
// over file config, which wins over built-in defaults.
func ApplyCLIFlags(cfg *NodeConfig, flags CLIFlags) {
	if len(flags.Bootstrap) > 0 {
		cfg.Bootstrap = flags.Bootstrap
	}
	switch flags.Host {
	case "":
	case string(HostModePublic):
		cfg.HostMode = HostModePublic
	case string(HostModeLocal):
		cfg.HostMode = HostModeLocal
	default:
		cfg.HostMode = HostModeExplicit
		cfg.Host = flags.Host
	}
	if flags.Port != 0 {
		cfg.Port = flags.Port
	}
	if flags.Job != "" {
		cfg.Job = flags.Job
	}
	if flags.MetricsDir != "" {
		cfg.MetricsDir = flags.MetricsDir
	}
	if flags.ScenariosDir != "" {
		cfg.ScenariosDir = flags.ScenariosDir
	}
	cfg.Verbose = cfg.Verbose || flags.Verbose
	cfg.Stats = cfg.Stats || flags.Stats
}
