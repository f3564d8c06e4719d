package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("gossip", "interval", ErrInvalidValue)
	assert.Contains(t, err.Error(), "gossip")
	assert.Contains(t, err.Error(), "interval")
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestValidationError_Error_NoField(t *testing.T) {
	err := NewValidationError("retention", "", ErrMissingRequiredField)
	assert.Equal(t, "retention: missing required field", err.Error())
}

func TestLoadError_Error(t *testing.T) {
	err := NewLoadError("node.yaml", ErrInvalidYAML)
	assert.Contains(t, err.Error(), "node.yaml")
	assert.True(t, errors.Is(err, ErrInvalidYAML))
}
