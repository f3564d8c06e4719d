package execctx

import "errors"

// ErrAlreadyClosed is returned by Close on a Context that has already run
// its cleanup hooks.
var ErrAlreadyClosed = errors.New("execctx: context already closed")
