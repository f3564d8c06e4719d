package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateAll(t *testing.T) {
	valid := func() *NodeConfig {
		return DefaultNodeConfig()
	}

	cases := []struct {
		name    string
		mutate  func(*NodeConfig)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*NodeConfig) {},
			wantErr: false,
		},
		{
			name: "explicit host mode without host",
			mutate: func(c *NodeConfig) {
				c.HostMode = HostModeExplicit
				c.Host = ""
			},
			wantErr: true,
		},
		{
			name: "explicit host mode with host is fine",
			mutate: func(c *NodeConfig) {
				c.HostMode = HostModeExplicit
				c.Host = "10.0.0.9"
			},
			wantErr: false,
		},
		{
			name: "unrecognized host mode",
			mutate: func(c *NodeConfig) {
				c.HostMode = HostMode("bogus")
			},
			wantErr: true,
		},
		{
			name: "zero gossip interval",
			mutate: func(c *NodeConfig) {
				c.Gossip.Interval = 0
			},
			wantErr: true,
		},
		{
			name: "zero gossip fanout",
			mutate: func(c *NodeConfig) {
				c.Gossip.Fanout = 0
			},
			wantErr: true,
		},
		{
			name: "nil gossip config",
			mutate: func(c *NodeConfig) {
				c.Gossip = nil
			},
			wantErr: true,
		},
		{
			name: "zero transport poll timeout",
			mutate: func(c *NodeConfig) {
				c.Transport.PollTimeout = 0
			},
			wantErr: true,
		},
		{
			name: "zero transport max payload",
			mutate: func(c *NodeConfig) {
				c.Transport.MaxPayloadBytes = 0
			},
			wantErr: true,
		},
		{
			name: "nil transport config",
			mutate: func(c *NodeConfig) {
				c.Transport = nil
			},
			wantErr: true,
		},
		{
			name: "zero scheduler poll interval",
			mutate: func(c *NodeConfig) {
				c.Scheduler.PollInterval = 0
			},
			wantErr: true,
		},
		{
			name: "nil scheduler config",
			mutate: func(c *NodeConfig) {
				c.Scheduler = nil
			},
			wantErr: true,
		},
		{
			name: "zero retention snapshot ttl",
			mutate: func(c *NodeConfig) {
				c.Retention.SnapshotTTL = 0
			},
			wantErr: true,
		},
		{
			name: "zero retention save interval",
			mutate: func(c *NodeConfig) {
				c.Retention.SaveInterval = 0
			},
			wantErr: true,
		},
		{
			name: "nil retention config",
			mutate: func(c *NodeConfig) {
				c.Retention = nil
			},
			wantErr: true,
		},
		{
			name: "zero port fails struct tag validation",
			mutate: func(c *NodeConfig) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "port above max fails struct tag validation",
			mutate: func(c *NodeConfig) {
				c.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "empty bootstrap entry fails struct tag validation",
			mutate: func(c *NodeConfig) {
				c.Bootstrap = []string{""}
			},
			wantErr: true,
		},
		{
			name: "long prune interval is still valid",
			mutate: func(c *NodeConfig) {
				c.Retention.PruneInterval = 24 * time.Hour
			},
			wantErr: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := NewValidator(cfg).ValidateAll()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
