package okws

import "errors"

// ErrDisposed is returned by Connect when the Supervisor has already been
// disposed. A disposed Supervisor delivers no further state transitions or
// messages, and Send always returns false rather than an error —
// ErrDisposed exists only for Connect to report the condition, not Send.
var ErrDisposed = errors.New("okws: supervisor disposed")
