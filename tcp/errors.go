package tcp

import "errors"

// Errors the engine may return from its exported entry points. Rejected
// segments (failing acceptability) are not among these: they elicit a bare
// ACK and are otherwise silently absorbed, per RFC 9293 §3.5.3.
var (
	// ErrNotConnected is returned by Close when called on a Connection with
	// no open send side left to close.
	ErrNotConnected = errors.New("tcp: not connected")

	// ErrIOFailure wraps a NIC transmit failure. The connection's state is
	// left as-is; a later OnTick may retry the send.
	ErrIOFailure = errors.New("tcp: nic write failed")
)

// ioError wraps the underlying NIC error so callers can unwrap through to it
// while still matching errors.Is(err, ErrIOFailure).
type ioError struct {
	err error
}

func (e *ioError) Error() string { return ErrIOFailure.Error() + ": " + e.err.Error() }
func (e *ioError) Unwrap() []error {
	return []error{ErrIOFailure, e.err}
}
