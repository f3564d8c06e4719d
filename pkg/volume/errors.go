package volume

import "errors"

// ErrJourneyComplete signals that a volume model's duration has elapsed;
// the caller (pkg/scenario) must stop requesting targets for this journey.
var ErrJourneyComplete = errors.New("volume: journey complete")

// ErrInvalidRampDown is returned when a ramp-down window is configured
// without a bounding duration; there is no "final N seconds" without a
// known end.
var ErrInvalidRampDown = errors.New("volume: ramp_down requires a duration")
