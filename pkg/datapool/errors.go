package datapool

import "errors"

// ErrDatapoolExhausted classifies every invalid-range checkout request: a
// negative index, a start beyond the datapool's length, or (for a
// non-recyclable pool) a stop before start.
var ErrDatapoolExhausted = errors.New("datapool: exhausted")
