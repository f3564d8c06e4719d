// Package config loads, merges, and validates node bootstrap configuration:
// built-in defaults, an optional YAML file, and CLI flag overrides, in that
// order of increasing precedence.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, and validates a NodeConfig.
//
// Steps performed:
//  1. Start from built-in defaults.
//  2. If configPath names an existing file, load and env-expand its YAML
//     and merge it on top (user overrides built-in).
//  3. Apply CLI flags (highest precedence).
//  4. Validate the result.
func Initialize(_ context.Context, configPath string, flags CLIFlags) (*NodeConfig, error) {
	log := slog.With("config_path", configPath)

	defaults := DefaultNodeConfig()

	var user *NodeConfig
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			expanded := ExpandEnv(raw)
			user = &NodeConfig{}
			if yerr := yaml.Unmarshal(expanded, user); yerr != nil {
				return nil, NewLoadError(configPath, fmt.Errorf("%w: %v", ErrInvalidYAML, yerr))
			}
		case os.IsNotExist(err):
			log.Debug("No config file found, using built-in defaults")
		default:
			return nil, NewLoadError(configPath, err)
		}
	}

	cfg, err := mergeNodeConfig(defaults, user)
	if err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}

	ApplyCLIFlags(cfg, flags)

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized",
		"host_mode", cfg.HostMode, "port", cfg.Port, "bootstrap_peers", len(cfg.Bootstrap))
	return cfg, nil
}
