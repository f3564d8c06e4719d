package wire

import (
	"fmt"
)

// validatePayload enforces the schema bounds mandatory on receive: exactly
// the two top-level sets, per-set entry caps, key/value size caps, a
// required non-negative numeric timestamp, and scalar-only metadata values.
// Failure anywhere aborts validation of the whole message; a partially
// valid payload is never merged.
func validatePayload(p *payload) error {
	if err := validateElementSet(p.AddSet, "add_set"); err != nil {
		return err
	}
	if err := validateElementSet(p.RemoveSet, "remove_set"); err != nil {
		return err
	}
	return nil
}

func validateElementSet(set map[string]map[string]any, name string) error {
	if len(set) > MaxCollectionSize {
		return NewValidationError(name, fmt.Errorf("%w: %d entries exceeds max %d", ErrValidation, len(set), MaxCollectionSize))
	}
	for key, meta := range set {
		path := fmt.Sprintf("%s[%q]", name, key)
		if len(key) > MaxStringLength {
			return NewValidationError(path, fmt.Errorf("%w: key length %d exceeds max %d", ErrValidation, len(key), MaxStringLength))
		}
		if err := validateMetadata(meta, path); err != nil {
			return err
		}
	}
	return nil
}

func validateMetadata(meta map[string]any, path string) error {
	if len(meta) > MaxMetadataKeys {
		return NewValidationError(path, fmt.Errorf("%w: %d metadata keys exceeds max %d", ErrValidation, len(meta), MaxMetadataKeys))
	}

	rawTS, ok := meta["timestamp"]
	if !ok {
		return NewValidationError(path, fmt.Errorf("%w: missing required timestamp", ErrValidation))
	}
	ts, err := asFloat64(rawTS)
	if err != nil {
		return NewValidationError(path+".timestamp", fmt.Errorf("%w: %v", ErrValidation, err))
	}
	if ts < 0 {
		return NewValidationError(path+".timestamp", fmt.Errorf("%w: timestamp cannot be negative", ErrValidation))
	}

	for k, v := range meta {
		if k == "timestamp" {
			continue
		}
		if err := validateScalar(v); err != nil {
			return NewValidationError(path+"."+k, fmt.Errorf("%w: %v", ErrValidation, err))
		}
	}
	return nil
}

// validateScalar rejects anything but the allowed metadata value types:
// string, number, bool, or null. msgpack decoding only ever
// produces these plus nested maps/slices, which this rejects outright;
// there is no nested-container allowance in the wire schema.
func validateScalar(v any) error {
	switch val := v.(type) {
	case nil, bool, string:
		if s, ok := val.(string); ok && len(s) > MaxStringLength {
			return fmt.Errorf("string value length %d exceeds max %d", len(s), MaxStringLength)
		}
		return nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	default:
		return fmt.Errorf("unsupported metadata value type %T", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
