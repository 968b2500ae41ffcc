package tcp

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/soypat/usertcp/internal"
)

const (
	// DefaultSendWindow is the send window this engine advertises to peers
	// on the handshake, per the external interface defaults.
	DefaultSendWindow = Size(1024)
	// DefaultTTL is the outbound IPv4 TTL this engine stamps on every segment.
	DefaultTTL = uint8(64)
	// maxSegmentBuffer bounds the size of one outbound frame (IP header + TCP
	// header + payload), matching a conservative Ethernet MTU.
	maxSegmentBuffer = 1500
)

// Connection is the per-endpoint TCP protocol engine: state machine, send
// and receive sequence spaces, byte queues and retransmission timers for a
// single 4-tuple. It is not safe for concurrent use from multiple goroutines
// without external synchronization of entry-point calls, though the
// embedded mutex guards the read/write/availability surface used
// concurrently by an application goroutine and the packet-pump goroutine.
type Connection struct {
	mu sync.Mutex

	id xid.ID // opaque identifier correlating log lines and metrics for one connection.

	state State
	snd   SendSequenceSpace
	rcv   RecvSequenceSpace
	timers Timers

	incoming internal.ByteQueue // received, not yet consumed by the application.
	unacked  internal.ByteQueue // enqueued by the application; sent and not-yet-sent bytes.

	closed    bool  // application called Close.
	closedAt  Value // sequence number of the FIN byte, once emitted.
	hasClosed bool  // whether closedAt holds a meaningful value.

	ackFlag bool // once true, every emitted segment carries ACK.

	rst RSTQueue // stateless resets queued against a bad handshake ACK.

	template outboundTemplate

	log     *slog.Logger
	metrics *Metrics
}

// outboundTemplate caches the header fields a Connection stamps on every
// segment it emits: the 4-tuple and TTL, which stay constant, and the IPv4 ID,
// which is incremented after each frame. Control flags are not cached here;
// write derives SYN and FIN from the segment's sequence number.
type outboundTemplate struct {
	localAddr, remoteAddr [4]byte
	localPort, remotePort uint16
	ttl                   uint8
	ipID                  uint16
}

// SetLogger attaches a structured logger used for debug/trace output. A nil
// logger (the default) disables logging unless built with the
// debugheaplog build tag.
func (c *Connection) SetLogger(log *slog.Logger) { c.log = log }

// ID returns the connection's opaque correlation identifier, suitable as a
// log attribute or metrics label.
func (c *Connection) ID() xid.ID { return c.id }

// State returns the connection's current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// newConnection allocates the common fields shared by AcceptPassive and
// ConnectActive.
func newConnection(localAddr, remoteAddr [4]byte, localPort, remotePort uint16) *Connection {
	seed := uint16(time.Now().UnixNano()) | 1
	return &Connection{
		id:     xid.New(),
		timers: newTimers(),
		template: outboundTemplate{
			localAddr:  localAddr,
			remoteAddr: remoteAddr,
			localPort:  localPort,
			remotePort: remotePort,
			ttl:        DefaultTTL,
			// Starting the IPv4 ID field from a pseudo-random value avoids
			// every freshly-created Connection emitting IDs starting back at
			// zero, which would otherwise collide across short-lived
			// connections to the same peer within one reboot.
			ipID: internal.Prand16(seed),
		},
	}
}

// AcceptPassive constructs a new Connection in response to an inbound SYN.
// seg must have the SYN flag set and no other control flags. isn selects the
// local ISS; a nil isn falls back to fixedISN(0), this engine's
// deterministic default. Pass a [SecureISNGenerator] for production use.
func AcceptPassive(localAddr, remoteAddr [4]byte, localPort, remotePort uint16, seg Segment, isn ISNGenerator) *Connection {
	if isn == nil {
		isn = fixedISN(0)
	}
	c := newConnection(localAddr, remoteAddr, localPort, remotePort)
	iss := isn.NextISN(localAddr[:], remoteAddr[:], localPort, remotePort)
	c.state = StateSynRcvd
	c.snd = SendSequenceSpace{ISS: iss, UNA: iss, NXT: iss, WND: DefaultSendWindow}
	c.rcv = RecvSequenceSpace{IRS: seg.SEQ, NXT: Add(seg.SEQ, 1), WND: seg.WND}
	if c.rcv.WND == 0 {
		c.rcv.WND = DefaultSendWindow
	}
	c.ackFlag = true
	c.debug("accept passive",
		slog.String("state", c.state.String()),
		internal.SlogAddr4("remote", &remoteAddr),
	)
	c.observeState()
	return c
}

// ConnectActive constructs a new Connection initiating an active open. The
// returned Connection is in SynSent; the initial SYN is transmitted by the
// caller's next OnTick.
func ConnectActive(localAddr, remoteAddr [4]byte, localPort, remotePort uint16, isn ISNGenerator) *Connection {
	if isn == nil {
		isn = fixedISN(0)
	}
	c := newConnection(localAddr, remoteAddr, localPort, remotePort)
	iss := isn.NextISN(localAddr[:], remoteAddr[:], localPort, remotePort)
	c.state = StateSynSent
	c.snd = SendSequenceSpace{ISS: iss, UNA: iss, NXT: iss, WND: DefaultSendWindow}
	c.debug("connect active",
		slog.String("state", c.state.String()),
		internal.SlogAddr4("remote", &remoteAddr),
	)
	c.observeState()
	return c
}

// Availability is a two-bit set reporting whether an application can usefully
// call Read or should flush pending Write data.
type Availability uint8

const (
	// AvailRead is set when the receive side has closed (peer sent FIN) or
	// incoming has buffered bytes ready for Read.
	AvailRead Availability = 1 << iota
	// AvailWrite is set when the send side has closed or unacked holds
	// bytes the application has written (whether or not sending is
	// currently possible).
	AvailWrite
)

func (a Availability) CanRead() bool  { return a&AvailRead != 0 }
func (a Availability) CanWrite() bool { return a&AvailWrite != 0 }

// availability computes the current Availability. Caller must hold c.mu.
func (c *Connection) availability() Availability {
	var a Availability
	if c.state == StateTimeWait || c.state == StateCloseWait || c.state == StateClosing || c.state == StateLastAck || c.incoming.Len() > 0 {
		a |= AvailRead
	}
	if c.closed || c.unacked.Len() > 0 {
		a |= AvailWrite
	}
	return a
}

// Availability reports the connection's current read/write availability.
func (c *Connection) Availability() Availability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.availability()
}

// Write enqueues application bytes for transmission. The engine never drops
// application-provided bytes: unacked grows to accommodate them, and it is
// the application's responsibility to bound how much it queues ahead of
// acknowledgment.
func (c *Connection) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrNotConnected
	}
	c.unacked.Append(b)
	return len(b), nil
}

// Read drains up to len(b) bytes from the head of incoming into b.
func (c *Connection) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, t := c.incoming.Slices()
	n := copy(b, h)
	if n < len(b) {
		n += copy(b[n:], t)
	}
	c.incoming.Discard(n)
	return n, nil
}

// BufferedInput returns the number of bytes available for Read.
func (c *Connection) BufferedInput() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.incoming.Len()
}

// now returns the wall-clock time used to stamp sends and measure waits.
// Timers methods take the instant as a parameter, so tests drive them with
// fixed times directly rather than through now.
func now() time.Time { return time.Now() }
