package tcp

import (
	"log/slog"

	"github.com/soypat/usertcp/ipv4"
	"github.com/soypat/usertcp/wire"
)

const ipHeaderLen = 20

// write assembles and transmits one outbound segment whose sequence number
// is seq, carrying at most limit payload bytes drawn from unacked. SYN is set
// when seq is the ISS and FIN when the segment ends at the latched closedAt;
// ACK is set once ackFlag is. It returns the number of payload bytes actually
// placed. Caller must hold c.mu.
func (c *Connection) write(nic NIC, seq Value, limit int) (int, error) {
	offset := int(Sizeof(c.snd.UNA, seq))
	if offset > c.unacked.Len() {
		offset = c.unacked.Len()
		limit = 0
	}

	h, t := c.unacked.PeekFrom(offset)
	maxData := limit
	if avail := len(h) + len(t); maxData > avail {
		maxData = avail
	}

	var buf [maxSegmentBuffer]byte
	headroom := ipHeaderLen + sizeHeaderTCP
	if maxData > len(buf)-headroom {
		maxData = len(buf) - headroom
	}

	ifrm, _ := ipv4.NewFrame(buf[:])
	ifrm.ClearHeader()
	ifrm.SetVersionAndIHL(4, 5)
	ifrm.SetTTL(c.template.ttl)
	ifrm.SetProtocol(wire.ProtoTCP)
	ifrm.SetID(c.template.ipID)
	c.template.ipID++
	*ifrm.SourceAddr() = c.template.localAddr
	*ifrm.DestinationAddr() = c.template.remoteAddr

	tfrm, _ := NewFrame(buf[ipHeaderLen:])
	tfrm.ClearHeader()
	tfrm.SetSourcePort(c.template.localPort)
	tfrm.SetDestinationPort(c.template.remotePort)
	tfrm.SetWindowSize(uint16(c.recvWindow()))
	tfrm.SetUrgentPtr(0)

	payloadOff := ipHeaderLen + sizeHeaderTCP
	p1 := copy(buf[payloadOff:], h[:minInt(maxData, len(h))])
	written := p1
	if written < maxData {
		written += copy(buf[payloadOff+written:], t[:maxData-written])
	}

	totalLen := payloadOff + written
	ifrm.SetTotalLength(uint16(totalLen))
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())

	var flags Flags
	if c.ackFlag {
		flags |= FlagACK
	}
	if seq == c.snd.ISS {
		flags |= FlagSYN
	}
	if c.hasClosed && Add(seq, Size(written)) == c.closedAt {
		flags |= FlagFIN
	}
	tfrm.SetSegment(Segment{SEQ: seq, ACK: c.rcv.NXT, WND: Size(c.recvWindow()), Flags: flags}, 5)

	var crc wire.CRC791
	ifrm.CRCWriteTCPPseudo(&crc)
	checksum := wire.NeverZeroChecksum(crc.PayloadSum16(buf[ipHeaderLen:totalLen]))
	tfrm.SetCRC(checksum)

	c.traceSeg("write", Segment{SEQ: seq, ACK: c.rcv.NXT, DATALEN: Size(written), Flags: flags})

	nextSeq := Add(seq, Size(written))
	if flags.HasAny(FlagSYN) {
		nextSeq = Add(nextSeq, 1)
	}
	if flags.HasAny(FlagFIN) {
		nextSeq = Add(nextSeq, 1)
	}
	if WrappingLT(c.snd.NXT, nextSeq) {
		c.snd.NXT = nextSeq
	}
	if written > 0 || flags.HasAny(FlagSYN|FlagFIN) {
		// A bare ACK carries nothing for the peer to acknowledge back, so it
		// must never be tracked for retransmission: its seq is snd.nxt, which
		// no ACK passes until later data is sent, so RetireAcked would leave
		// it in place and it would eventually look overdue.
		c.timers.Record(seq, now())
	}
	c.observeSent(written)

	err := nic.Send(buf[:totalLen])
	if err != nil {
		c.logerr("nic send failed", slog.String("err", err.Error()))
		return written, &ioError{err: err}
	}
	return written, nil
}

// minInt is a local alias avoiding any ambiguity with sequence-space Size
// arithmetic; plain int comparison is always correct for buffer offsets.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// recvWindow returns the receive window to advertise, clamped to the 16-bit
// TCP header field (RFC 1323 window scaling is out of scope).
func (c *Connection) recvWindow() uint16 {
	if c.rcv.WND > 0xffff {
		return 0xffff
	}
	return uint16(c.rcv.WND)
}

// bareACK emits a zero-payload segment carrying the current send/receive
// sequence numbers, used to acknowledge data and to decline unacceptable
// segments.
func (c *Connection) bareACK(nic NIC) error {
	_, err := c.write(nic, c.snd.NXT, 0)
	return err
}
