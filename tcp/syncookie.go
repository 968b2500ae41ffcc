package tcp

import (
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Embed low 5 bits of counter into cookie for efficient validation.
const (
	counterbits = 5
	countermsk  = (1 << counterbits) - 1
)

// SYNCookieJar implements SYN cookie generation and validation for TCP SYN
// flood protection. SYN cookies allow a server to avoid allocating state for
// half-open connections by encoding connection parameters into the Initial
// Sequence Number (ISS) of the SYN-ACK response, deferring Connection
// creation until the final ACK of the handshake arrives with a valid cookie.
//
// The cookie encodes a keyed hash of the connection tuple (src/dst IP,
// src/dst port, client ISN) together with a timestamp counter for expiry.
// See RFC 4987 for background on SYN flood attacks and cookie mitigations.
type SYNCookieJar struct {
	// counter is advanced periodically (or under load) to expire old cookies.
	counter uint32
	// maxCounterDelta defines how many counter increments a cookie remains valid for.
	maxCounterDelta uint32
	// secret keys the cookie hash. Must be random and kept private.
	secret [32]byte
}

// SYNCookieConfig contains configuration for SYN cookie initialization.
type SYNCookieConfig struct {
	// Rand is used for entropy generation of the cookie secret. Required.
	Rand io.Reader
	// MaxCounterDelta defines cookie validity window in counter increments.
	// Zero defaults to 1.
	MaxCounterDelta uint32
}

var (
	errInvalidCookie = errors.New("tcp: invalid or expired SYN cookie")
	errNoRandSource  = errors.New("tcp: SYNCookieConfig.Rand is nil")
)

// Reset initializes or reinitializes the jar's secret. The counter is
// preserved across resets so recently issued cookies remain valid through a
// secret rotation triggered for unrelated reasons.
func (sc *SYNCookieJar) Reset(config SYNCookieConfig) error {
	if config.Rand == nil {
		return errNoRandSource
	}
	_, err := io.ReadFull(config.Rand, sc.secret[:])
	if err != nil {
		return err
	}
	maxDelta := config.MaxCounterDelta
	if maxDelta == 0 {
		maxDelta = 1
	}
	sc.maxCounterDelta = maxDelta
	return nil
}

// IncrementCounter advances the counter, eventually expiring old cookies.
// Call periodically (e.g. every few seconds) or under SYN flood pressure.
func (sc *SYNCookieJar) IncrementCounter() { sc.counter++ }

// Counter returns the current counter value.
func (sc *SYNCookieJar) Counter() uint32 { return sc.counter }

// MakeSYNCookie creates a SYN cookie value to use as the ISS in a SYN-ACK
// response, encoding the connection tuple and current counter.
func (sc *SYNCookieJar) MakeSYNCookie(srcAddr, dstAddr []byte, srcPort, dstPort uint16, clientISN Value) Value {
	return sc.generateWithCounter(srcAddr, dstAddr, srcPort, dstPort, clientISN, sc.counter)
}

func (sc *SYNCookieJar) generateWithCounter(srcAddr, dstAddr []byte, srcPort, dstPort uint16, clientISN Value, counter uint32) Value {
	hash := sc.hashTuple(srcAddr, dstAddr, srcPort, dstPort, clientISN, counter)
	hash <<= counterbits
	return Value(hash | counter&countermsk)
}

// ValidateSYNCookie checks whether ackNum from a client completing the
// handshake contains a valid, unexpired cookie and returns it if so.
func (sc *SYNCookieJar) ValidateSYNCookie(srcAddr, dstAddr []byte, srcPort, dstPort uint16, clientISN Value, ackNum Value) (Value, error) {
	cookie := ackNum - 1 // client ACKs cookie+1
	cookieCounterBits := uint32(cookie) & countermsk

	for delta := uint32(0); delta <= sc.maxCounterDelta; delta++ {
		tryCounter := sc.counter - delta
		if tryCounter&countermsk != cookieCounterBits {
			continue
		}
		expected := sc.generateWithCounter(srcAddr, dstAddr, srcPort, dstPort, clientISN, tryCounter)
		if expected == cookie {
			return cookie, nil
		}
	}
	return 0, errInvalidCookie
}

// hashTuple computes a keyed BLAKE2b hash of the connection tuple, truncated
// to the 27 bits that fit alongside the counter in a cookie.
func (sc *SYNCookieJar) hashTuple(srcAddr, dstAddr []byte, srcPort, dstPort uint16, clientISN Value, counter uint32) uint32 {
	h, err := blake2b.New(4, sc.secret[:])
	if err != nil {
		panic(err) // unreachable: secret is fixed-size and within [1,64].
	}
	var portBuf [4]byte
	binary.BigEndian.PutUint16(portBuf[0:2], srcPort)
	binary.BigEndian.PutUint16(portBuf[2:4], dstPort)
	var isnCounterBuf [8]byte
	binary.BigEndian.PutUint32(isnCounterBuf[0:4], uint32(clientISN))
	binary.BigEndian.PutUint32(isnCounterBuf[4:8], counter)

	h.Write(srcAddr)
	h.Write(dstAddr)
	h.Write(portBuf[:])
	h.Write(isnCounterBuf[:])
	sum := h.Sum(nil)
	return binary.BigEndian.Uint32(sum) >> counterbits
}
