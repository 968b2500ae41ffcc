package tcp

import "log/slog"

// OnTick drives time-based work: deciding whether unsent bytes should go out
// now, whether the oldest unacknowledged segment is overdue for
// retransmission, and whether a pending Close should latch its FIN onto the
// sequence space. It is meant to be called at a steady cadence (tens of
// milliseconds) by the caller's event loop.
func (c *Connection) OnTick(nic NIC) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateFinWait2, StateTimeWait, StateClosed:
		return nil
	}

	if c.closed && !c.hasClosed && c.pendingFINState() {
		c.closedAt = Add(c.snd.UNA, Size(c.unacked.Len()))
		c.hasClosed = true
		c.debug("latched FIN", slog.Uint64("closedAt", uint64(c.closedAt)))
	}

	nunacked := int(Sizeof(c.snd.UNA, c.snd.NXT))
	nunsent := c.unacked.Len() - nunacked
	if nunsent < 0 {
		nunsent = 0
	}

	if waited, ok := c.timers.EarliestSince(); ok {
		elapsed := now().Sub(waited)
		if c.timers.RetransmitDue(elapsed) {
			c.debug("retransmitting", slog.Duration("waited", elapsed))
			c.observeRetransmit()
			resend := minInt(c.unacked.Len(), int(c.snd.WND))
			_, err := c.write(nic, c.snd.UNA, resend)
			return err
		}
	}

	synPending := c.snd.NXT == c.snd.ISS
	finPending := c.hasClosed && c.snd.NXT == c.closedAt
	allowed := int(c.snd.WND) - nunacked
	if allowed < 0 {
		allowed = 0
	}
	send := minInt(nunsent, allowed)
	if send > 0 || synPending || finPending {
		_, err := c.write(nic, c.snd.NXT, send)
		return err
	}

	return nil
}

// pendingFINState reports whether the state machine is in one of the states
// Close moves a connection into while waiting for its FIN to be latched onto
// the sequence space. Caller must hold c.mu.
func (c *Connection) pendingFINState() bool {
	switch c.state {
	case StateFinWait1, StateLastAck:
		return true
	}
	return false
}
