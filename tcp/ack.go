package tcp

import "log/slog"

// OnPacket processes one inbound, already-parsed TCP segment (header fields
// plus payload) against the current connection state, emitting whatever
// reply segments RFC 9293 calls for via nic. It returns the connection's
// resulting Availability.
func (c *Connection) OnPacket(nic NIC, seg Segment, payload []byte) (Availability, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traceSeg("recv", seg)

	if c.state == StateSynSent {
		return c.handleSynSent(nic, seg)
	}

	if !acceptable(&c.rcv, seg) {
		c.trace("segment rejected by acceptability check")
		if err := c.bareACK(nic); err != nil {
			return c.availability(), err
		}
		return c.availability(), nil
	}

	if !seg.Flags.HasAny(FlagACK) {
		if seg.Flags.HasAny(FlagSYN) {
			c.rcv.NXT = Add(seg.SEQ, 1)
		}
		return c.availability(), nil
	}

	ackn := seg.ACK
	if c.state == StateSynRcvd {
		if IsBetweenWrapped(c.snd.UNA-1, ackn, Add(c.snd.NXT, 1)) {
			c.state = StateEstablished
			c.ackFlag = true
			c.debug("handshake complete", slog.String("state", c.state.String()))
			c.observeState()
		} else {
			c.logerr("bad ack during handshake, resetting", slog.Uint64("ack", uint64(ackn)))
			c.rst.Queue(c.template.remoteAddr[:], c.template.remotePort, c.template.localPort, ackn, 0, FlagRST)
			c.state = StateClosed
			return c.availability(), nil
		}
	}

	switch c.state {
	case StateEstablished, StateFinWait1, StateFinWait2, StateCloseWait, StateClosing, StateLastAck:
		if IsBetweenWrapped(c.snd.UNA, ackn, Add(c.snd.NXT, 1)) {
			c.applyAck(ackn)
		}
	}

	if c.state == StateFinWait1 && c.hasClosed && c.snd.UNA == Add(c.closedAt, 1) {
		c.state = StateFinWait2
		c.observeState()
	}
	if c.state == StateClosing && c.hasClosed && c.snd.UNA == Add(c.closedAt, 1) {
		c.state = StateTimeWait
		c.observeState()
	}
	if c.state == StateLastAck && c.hasClosed && c.snd.UNA == Add(c.closedAt, 1) {
		c.state = StateClosed
		c.observeState()
	}

	switch c.state {
	case StateEstablished, StateFinWait1, StateFinWait2:
		if len(payload) > 0 || seg.Flags.HasAny(FlagFIN) {
			c.receiveData(seg, payload)
			if err := c.bareACK(nic); err != nil {
				return c.availability(), err
			}
		}
	}

	if seg.Flags.HasAny(FlagFIN) {
		switch c.state {
		case StateEstablished:
			c.state = StateCloseWait
			c.observeState()
		case StateFinWait1:
			c.state = StateClosing
			c.observeState()
		case StateFinWait2:
			// The data-receive block above already sent the ACK covering
			// this FIN (len(payload) > 0 || HasAny(FlagFIN) triggered it).
			c.state = StateTimeWait
			c.observeState()
		}
	}

	return c.availability(), nil
}

// handleSynSent processes the active opener's side of the three-way
// handshake: the response to our initial SYN. A SYN with no ACK means a
// simultaneous open, which this engine degrades to by falling back to
// SYN-RECEIVED and waiting for the peer's ACK like a passive opener would.
// Caller must hold c.mu.
func (c *Connection) handleSynSent(nic NIC, seg Segment) (Availability, error) {
	if !seg.Flags.HasAny(FlagSYN) {
		c.trace("dropping non-SYN segment while SYN-SENT")
		return c.availability(), nil
	}

	c.rcv.IRS = seg.SEQ
	c.rcv.NXT = Add(seg.SEQ, 1)
	c.rcv.WND = seg.WND
	if c.rcv.WND == 0 {
		c.rcv.WND = DefaultSendWindow
	}

	ackAcceptable := seg.Flags.HasAny(FlagACK) && IsBetweenWrapped(c.snd.ISS, seg.ACK, Add(c.snd.NXT, 1))
	if !ackAcceptable {
		c.state = StateSynRcvd
		c.ackFlag = true
		c.observeState()
		return c.availability(), nil
	}

	c.timers.RetireAcked(seg.ACK, now())
	c.snd.UNA = seg.ACK
	c.state = StateEstablished
	c.ackFlag = true
	c.debug("handshake complete", slog.String("state", c.state.String()))
	c.observeState()
	err := c.bareACK(nic)
	return c.availability(), err
}

// applyAck drains unacked up to ackn, retires matching send-time entries
// into the RTT estimate, and advances snd.una. Caller must hold c.mu.
func (c *Connection) applyAck(ackn Value) {
	dataStart := c.snd.UNA
	if c.snd.UNA == c.snd.ISS {
		// The SYN occupies one sequence slot but is not a byte in unacked.
		dataStart = Add(c.snd.UNA, 1)
	}
	drain := int(Sizeof(dataStart, ackn))
	if drain > c.unacked.Len() {
		drain = c.unacked.Len()
	}
	if drain > 0 {
		c.unacked.Discard(drain)
	}
	c.timers.RetireAcked(ackn, now())
	c.snd.UNA = ackn
}

// receiveData appends newly-received payload bytes to incoming and advances
// rcv.nxt over the data (and the FIN, if present). Caller must hold c.mu.
func (c *Connection) receiveData(seg Segment, payload []byte) {
	unreadAt := int(Sizeof(seg.SEQ, c.rcv.NXT))
	if unreadAt > len(payload) {
		// A retransmission of a FIN we already absorbed: nxt points past it
		// but the FIN is not itself a payload byte.
		unreadAt = 0
	}
	if unreadAt < len(payload) {
		c.incoming.Append(payload[unreadAt:])
		c.observeReceived(len(payload) - unreadAt)
	}
	newNxt := Add(seg.SEQ, Size(len(payload)))
	if seg.Flags.HasAny(FlagFIN) {
		newNxt = Add(newNxt, 1)
	}
	c.rcv.NXT = newNxt
}
