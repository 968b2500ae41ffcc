// Package tcp implements a userspace TCP connection engine conforming to
// RFC 9293 (formerly RFC 793), including RFC 1323 wrap-safe sequence
// arithmetic. It owns per-connection state, segment acceptability and ACK
// processing, a smoothed-RTT retransmission scheduler and graceful close
// sequencing, and serializes the TCP header of every segment it emits. IPv4
// framing lives in package ipv4, checksum primitives in package wire, and the
// network interface that actually moves bytes is an external collaborator.
package tcp

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

var (
	errWindowTooLarge = errors.New("tcp: invalid window size > 2**16")
	errBufferTooSmall = errors.New("tcp: buffer too small")
)

// Segment represents an incoming/outgoing TCP segment in the sequence space.
type Segment struct {
	SEQ     Value // sequence number of first octet of segment. If SYN is set it is the initial sequence number (ISN) and the first data octet is ISN+1.
	ACK     Value // acknowledgment number. If ACK is set it is sequence number of first octet the sender of the segment is expecting to receive next.
	DATALEN Size  // The number of octets occupied by the data (payload) not counting SYN and FIN.
	WND     Size  // segment window
	Flags   Flags // TCP flags.
}

// LEN returns the length of the segment in sequence-space octets, including
// the virtual bytes contributed by SYN and FIN.
func (seg *Segment) LEN() Size {
	add := Size(seg.Flags>>0) & 1 // Add FIN bit.
	add += Size(seg.Flags>>1) & 1 // Add SYN bit.
	return seg.DATALEN + add
}

// Last returns the sequence number of the last octet of the segment.
func (seg *Segment) Last() Value {
	seglen := seg.LEN()
	if seglen == 0 {
		return seg.SEQ
	}
	return Add(seg.SEQ, seglen) - 1
}

func (seg Segment) String() string {
	return fmt.Sprintf("<SEQ=%d><ACK=%d><WND=%d>%s", seg.SEQ, seg.ACK, seg.WND, seg.Flags.String())
}

// Flags is a TCP flags bit-masked implementation i.e: SYN, FIN, ACK.
type Flags uint16

const (
	FlagFIN Flags = 1 << iota // FlagFIN - No more data from sender.
	FlagSYN                   // FlagSYN - Synchronize sequence numbers.
	FlagRST                   // FlagRST - Reset the connection.
	FlagPSH                   // FlagPSH - Push function.
	FlagACK                   // FlagACK - Acknowledgment field significant.
	FlagURG                   // FlagURG - Urgent pointer field significant.
	FlagECE                   // FlagECE - ECN-Echo has a nonce-sum in the SYN/ACK.
	FlagCWR                   // FlagCWR - Congestion Window Reduced.
	FlagNS                    // FlagNS  - Nonce Sum flag (see RFC 3540).
)

const flagMask = 0x01ff

const (
	synack = FlagSYN | FlagACK
	finack = FlagFIN | FlagACK
)

// HasAll checks if mask bits are all set in the receiver flags.
func (flags Flags) HasAll(mask Flags) bool { return flags&mask == mask }

// HasAny checks if one or more mask bits are set in receiver flags.
func (flags Flags) HasAny(mask Flags) bool { return flags&mask != 0 }

// Mask returns the flags with non-flag bits unset.
func (flags Flags) Mask() Flags { return flags & flagMask }

// String returns a human readable flag string, i.e "[SYN,ACK]".
func (flags Flags) String() string {
	switch flags {
	case 0:
		return "[]"
	case synack:
		return "[SYN,ACK]"
	case finack:
		return "[FIN,ACK]"
	case FlagACK:
		return "[ACK]"
	case FlagSYN:
		return "[SYN]"
	case FlagFIN:
		return "[FIN]"
	case FlagRST:
		return "[RST]"
	}
	buf := make([]byte, 0, 2+3*bits.OnesCount16(uint16(flags)))
	buf = append(buf, '[')
	buf = flags.AppendFormat(buf)
	buf = append(buf, ']')
	return string(buf)
}

// AppendFormat appends a human readable flag string to b returning the extended buffer.
func (flags Flags) AppendFormat(b []byte) []byte {
	if flags == 0 {
		return b
	}
	const flaglen = 3
	const strflags = "FINSYNRSTPSHACKURGECECWRNS "
	var addcommas bool
	for flags != 0 {
		i := bits.TrailingZeros16(uint16(flags))
		if addcommas {
			b = append(b, ',')
		} else {
			addcommas = true
		}
		b = append(b, strflags[i*flaglen:i*flaglen+flaglen]...)
		flags &= ^(1 << i)
	}
	return b
}

// State enumerates the states a TCP connection progresses through during its lifetime.
type State uint8

const (
	// StateClosed represents no connection state at all. Pseudo-state
	// before a Connection is opened, or after it has fully terminated.
	StateClosed State = iota // CLOSED
	// StateListen represents waiting for a connection request from any remote TCP and port.
	StateListen // LISTEN
	// StateSynSent represents waiting for a matching connection request after having sent a connection request.
	StateSynSent // SYN-SENT
	// StateSynRcvd represents waiting for a confirming connection request acknowledgment
	// after having both received and sent a connection request.
	StateSynRcvd // SYN-RECEIVED
	// StateEstablished represents an open connection, data received can be delivered to the user.
	StateEstablished // ESTABLISHED
	// StateFinWait1 represents waiting for a connection termination request from the remote
	// TCP, or an acknowledgment of the termination request previously sent.
	StateFinWait1 // FIN-WAIT-1
	// StateFinWait2 represents waiting for a connection termination request from the remote TCP.
	StateFinWait2 // FIN-WAIT-2
	// StateCloseWait represents waiting for a connection termination request from the local user.
	StateCloseWait // CLOSE-WAIT
	// StateClosing represents waiting for a connection termination request acknowledgment
	// from the remote TCP.
	StateClosing // CLOSING
	// StateLastAck represents waiting for an acknowledgment of the connection termination
	// request previously sent to the remote TCP.
	StateLastAck // LAST-ACK
	// StateTimeWait represents waiting for enough time to pass to be sure the remote TCP
	// received the acknowledgment of its connection termination request.
	StateTimeWait // TIME-WAIT
)

var stateNames = [...]string{
	StateClosed:      "CLOSED",
	StateListen:      "LISTEN",
	StateSynSent:     "SYN-SENT",
	StateSynRcvd:     "SYN-RECEIVED",
	StateEstablished: "ESTABLISHED",
	StateFinWait1:    "FIN-WAIT-1",
	StateFinWait2:    "FIN-WAIT-2",
	StateCloseWait:   "CLOSE-WAIT",
	StateClosing:     "CLOSING",
	StateLastAck:     "LAST-ACK",
	StateTimeWait:    "TIME-WAIT",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// IsPreestablished returns true if the connection is in a state preceding the established state.
func (s State) IsPreestablished() bool {
	return s == StateSynRcvd || s == StateSynSent || s == StateListen
}

// IsClosing returns true if the connection is in a closing state but not yet terminated.
func (s State) IsClosing() bool {
	return s >= StateFinWait1 && s != StateClosed
}

// IsClosed returns true if the connection has relinquished all state about the remote peer.
func (s State) IsClosed() bool {
	return s == StateClosed || s == StateTimeWait
}

// IsSynchronized returns true if the connection has gone through the Established state.
func (s State) IsSynchronized() bool {
	return s >= StateEstablished
}

// OptionKind identifies a TCP option as assigned by IANA.
type OptionKind uint8

const (
	OptEnd            OptionKind = iota // end of option list
	OptNop                              // no-operation
	OptMaxSegmentSize                   // maximum segment size
	OptWindowScale                      // window scale
	OptSACKPermitted                    // SACK permitted
	OptSACK                             // SACK
	OptTimestamps     OptionKind = 8    // timestamps
)

func (kind OptionKind) String() string {
	switch kind {
	case OptEnd:
		return "end"
	case OptNop:
		return "nop"
	case OptMaxSegmentSize:
		return "MSS"
	case OptWindowScale:
		return "window scale"
	case OptSACKPermitted:
		return "SACK permitted"
	case OptSACK:
		return "SACK"
	case OptTimestamps:
		return "timestamps"
	default:
		return "option(" + strconv.Itoa(int(kind)) + ")"
	}
}

// OptionParser walks a TCP options buffer, the only option this engine acts
// on is OptMaxSegmentSize; all others are surfaced to the callback unparsed.
type OptionParser struct {
	SkipSizeValidation bool
}

// ForEachOption invokes fn for every option found in opts (the TCP header's
// options section). Parsing stops at the first error fn returns or at the
// first malformed option encountered.
func (op *OptionParser) ForEachOption(opts []byte, fn func(OptionKind, []byte) error) error {
	off := 0
	for off < len(opts) && opts[off] != byte(OptEnd) {
		kind := OptionKind(opts[off])
		off++
		if kind == OptNop {
			continue
		}
		if len(opts[off:]) < 1 {
			return errors.New("tcp: short options")
		}
		size := int(opts[off]) - 2
		off++
		if size < 0 || len(opts[off:]) < size {
			return fmt.Errorf("tcp: option %s length exceeds buffer", kind)
		}
		if !op.SkipSizeValidation && kind == OptMaxSegmentSize && size != 2 {
			return fmt.Errorf("tcp: bad MSS option size %d", size)
		}
		if err := fn(kind, opts[off:off+size]); err != nil {
			return err
		}
		off += size
	}
	return nil
}

// AppendMSSOption appends a 4-byte maximum-segment-size option to b.
func AppendMSSOption(b []byte, mss uint16) []byte {
	return append(b, byte(OptMaxSegmentSize), 4, byte(mss>>8), byte(mss))
}
