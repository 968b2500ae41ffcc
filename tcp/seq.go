package tcp

// Value is a 32-bit TCP sequence or acknowledgment number. Arithmetic on
// Value wraps modulo 2**32 as specified by RFC 1323 appendix; comparisons
// MUST use WrappingLT/IsBetweenWrapped below rather than the builtin
// operators, which would break the moment a connection's sequence space
// wraps around zero.
type Value uint32

// Size is a length in sequence-space octets (payload bytes plus one for each
// of SYN and FIN present in a segment).
type Size uint32

// Add returns v+s performed in the wrapping sequence-number space.
func Add(v Value, s Size) Value { return v + Value(s) }

// Sizeof returns the distance from a to b going forward through the
// sequence space, i.e. the Size s such that Add(a, s) == b.
func Sizeof(a, b Value) Size { return Size(b - a) }

// WrappingLT reports whether a precedes b in the 32-bit sequence space,
// i.e. whether the forward arc from a to b is shorter than the backward one.
// Defined as (a-b) mod 2**32 > 2**31; see RFC 1323 appendix for derivation.
func WrappingLT(a, b Value) bool {
	return a-b > 1<<31
}

// IsBetweenWrapped reports whether x lies strictly between start and end in
// the wrap-safe sequence space: WrappingLT(start, x) && WrappingLT(x, end).
// Both endpoints are exclusive.
func IsBetweenWrapped(start, x, end Value) bool {
	return WrappingLT(start, x) && WrappingLT(x, end)
}

// LessThan reports whether v precedes other in the wrap-safe sequence space.
func (v Value) LessThan(other Value) bool { return WrappingLT(v, other) }

// LessThanEq reports whether v precedes or equals other in the wrap-safe sequence space.
func (v Value) LessThanEq(other Value) bool { return v == other || WrappingLT(v, other) }

// InRange reports whether v lies in the open interval (lo, hi) of the wrap-safe sequence space.
func (v Value) InRange(lo, hi Value) bool { return IsBetweenWrapped(lo, v, hi) }
