package tcp

import (
	"log/slog"

	"github.com/soypat/usertcp/internal"
	"github.com/soypat/usertcp/ipv4"
	"github.com/soypat/usertcp/wire"
)

// RSTQueue is a small fixed-size queue of pending stateless RST responses.
// It is not safe for concurrent use; callers must synchronize access.
type RSTQueue struct {
	buf [4]rstEntry
	len uint8
}

type rstEntry struct {
	remoteAddr [4]byte
	remotePort uint16
	localPort  uint16
	seq        Value
	ack        Value
	flags      Flags
}

// Queue enqueues a RST response. Silently drops if srcaddr is not IPv4 or queue is full.
func (q *RSTQueue) Queue(srcaddr []byte, remotePort, localPort uint16, seq, ack Value, flags Flags) {
	if len(srcaddr) == 4 && q.len < uint8(len(q.buf)) {
		entry := &q.buf[q.len]
		copy(entry.remoteAddr[:], srcaddr)
		entry.remotePort = remotePort
		entry.localPort = localPort
		entry.seq = seq
		entry.ack = ack
		entry.flags = flags
		q.len++
	}
}

// Pending returns the number of queued RST entries.
func (q *RSTQueue) Pending() int { return int(q.len) }

// Drain writes one pending RST into carrierData, a caller-owned buffer
// already holding a cleared IPv4 header (version, IHL, TTL, protocol, source
// address and total length set) immediately followed by room for the TCP
// header at offsetToFrame. It fills in the destination address, the TCP
// header fields, and the pseudo-header checksum, and returns the TCP frame
// length written. Returns (0, nil) if the queue is empty.
func (q *RSTQueue) Drain(carrierData []byte, offsetToIP, offsetToFrame int) (int, error) {
	if q.len == 0 || offsetToIP < 0 {
		return 0, nil
	}
	q.len--
	entry := &q.buf[q.len]
	tfrm, err := NewFrame(carrierData[offsetToFrame:])
	if err != nil {
		return 0, nil
	}
	tfrm.SetSourcePort(entry.localPort)
	tfrm.SetDestinationPort(entry.remotePort)
	tfrm.SetSegment(Segment{
		SEQ:   entry.seq,
		ACK:   entry.ack,
		Flags: entry.flags,
	}, 5)
	tfrm.SetUrgentPtr(0)
	tfrm.SetCRC(0)
	err = internal.SetIPAddrs(carrierData[offsetToIP:offsetToFrame], 0, nil, entry.remoteAddr[:])
	if err != nil {
		return 0, nil
	}
	var crc wire.CRC791
	crc.Write(carrierData[offsetToIP+12 : offsetToIP+16]) // source addr
	crc.Write(carrierData[offsetToIP+16 : offsetToIP+20]) // destination addr
	crc.AddUint16(sizeHeaderTCP)
	crc.AddUint16(uint16(wire.ProtoTCP))
	tfrm.SetCRC(wire.NeverZeroChecksum(crc.PayloadSum16(carrierData[offsetToFrame:])))
	return sizeHeaderTCP, nil
}

// FlushResets transmits every RST queued against c (by a rejected handshake
// ACK; see OnPacket) via nic, one IPv4+TCP frame at a time.
func (c *Connection) FlushResets(nic NIC) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.rst.Pending() > 0 {
		var buf [ipHeaderLen + sizeHeaderTCP]byte
		ifrm, err := ipv4.NewFrame(buf[:])
		if err != nil {
			return err
		}
		ifrm.ClearHeader()
		ifrm.SetVersionAndIHL(4, 5)
		ifrm.SetTTL(c.template.ttl)
		ifrm.SetProtocol(wire.ProtoTCP)
		ifrm.SetID(c.template.ipID)
		c.template.ipID++
		*ifrm.SourceAddr() = c.template.localAddr
		ifrm.SetTotalLength(uint16(len(buf)))

		n, err := c.rst.Drain(buf[:], 0, ipHeaderLen)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		ifrm.SetCRC(ifrm.CalculateHeaderCRC())
		c.trace("sending rst")
		if err := nic.Send(buf[:]); err != nil {
			c.logerr("rst send failed", slog.String("err", err.Error()))
			return &ioError{err: err}
		}
	}
	return nil
}
