package wire

import "errors"

// Sentinel errors reused by ipv4 and tcp frame validation.
var (
	ErrShortBuffer        = errors.New("wire: short buffer")
	ErrInvalidLengthField = errors.New("wire: invalid length field")
	ErrZeroSource         = errors.New("wire: zero source port")
	ErrZeroDestination    = errors.New("wire: zero destination port")
	ErrBadCRC             = errors.New("wire: bad checksum")
)

// ValidatorFlags configures optional Validator checks.
type ValidatorFlags uint8

const (
	// ValidateEvilBit rejects IPv4 frames with the evil bit (RFC 3514) set.
	ValidateEvilBit ValidatorFlags = 1 << iota
)

// Validator accumulates validation errors across one or more frame layers
// so a caller can run all size/field checks before deciding to drop a packet.
// The zero value is ready to use and stops at the first error found; set
// AllowMultiErrs to collect every error instead.
type Validator struct {
	flags          ValidatorFlags
	AllowMultiErrs bool
	accum          []error
}

// SetFlags replaces the validator's flag set. See [ValidatorFlags].
func (v *Validator) SetFlags(f ValidatorFlags) { v.flags = f }

// Flags returns the validator's current flag set.
func (v *Validator) Flags() ValidatorFlags { return v.flags }

// Reset clears accumulated errors for reuse across packets.
func (v *Validator) Reset() { v.accum = v.accum[:0] }

// Err returns the accumulated validation error, or nil if none were added.
func (v *Validator) Err() error {
	switch len(v.accum) {
	case 0:
		return nil
	case 1:
		return v.accum[0]
	default:
		return errors.Join(v.accum...)
	}
}

// AddError records a validation failure. Once an error has been recorded,
// further calls are no-ops unless AllowMultiErrs is set.
func (v *Validator) AddError(err error) {
	if len(v.accum) != 0 && !v.AllowMultiErrs {
		return
	}
	v.accum = append(v.accum, err)
}
