package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structValidate = validator.New()

// Validator validates a NodeConfig comprehensively with clear error messages.
type Validator struct {
	cfg *NodeConfig
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *NodeConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast: stops at the
// first error, mirroring the dependency order defaults are resolved in).
func (v *Validator) ValidateAll() error {
	if err := structValidate.Struct(v.cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if err := v.validateHost(); err != nil {
		return NewValidationError("node", "host", err)
	}
	if err := v.validateGossip(); err != nil {
		return NewValidationError("gossip", "", err)
	}
	if err := v.validateTransport(); err != nil {
		return NewValidationError("transport", "", err)
	}
	if err := v.validateScheduler(); err != nil {
		return NewValidationError("scheduler", "", err)
	}
	if err := v.validateRetention(); err != nil {
		return NewValidationError("retention", "", err)
	}
	return nil
}

func (v *Validator) validateHost() error {
	if !v.cfg.HostMode.IsValid() {
		return fmt.Errorf("%w: unrecognized host_mode %q", ErrInvalidValue, v.cfg.HostMode)
	}
	if v.cfg.HostMode == HostModeExplicit && v.cfg.Host == "" {
		return fmt.Errorf("%w: host is required when host_mode=addr", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateGossip() error {
	g := v.cfg.Gossip
	if g == nil {
		return fmt.Errorf("%w: gossip config", ErrMissingRequiredField)
	}
	if g.Interval <= 0 {
		return fmt.Errorf("%w: gossip.interval must be positive", ErrInvalidValue)
	}
	if g.Fanout < 1 {
		return fmt.Errorf("%w: gossip.fanout must be at least 1", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateTransport() error {
	t := v.cfg.Transport
	if t == nil {
		return fmt.Errorf("%w: transport config", ErrMissingRequiredField)
	}
	if t.PollTimeout <= 0 {
		return fmt.Errorf("%w: transport.poll_timeout must be positive", ErrInvalidValue)
	}
	if t.MaxPayloadBytes <= 0 {
		return fmt.Errorf("%w: transport.max_payload_bytes must be positive", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateScheduler() error {
	s := v.cfg.Scheduler
	if s == nil {
		return fmt.Errorf("%w: scheduler config", ErrMissingRequiredField)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("%w: scheduler.poll_interval must be positive", ErrInvalidValue)
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r == nil {
		return fmt.Errorf("%w: retention config", ErrMissingRequiredField)
	}
	if r.SnapshotTTL <= 0 {
		return fmt.Errorf("%w: retention.snapshot_ttl must be positive", ErrInvalidValue)
	}
	if r.SaveInterval <= 0 {
		return fmt.Errorf("%w: retention.save_interval must be positive", ErrInvalidValue)
	}
	return nil
}
