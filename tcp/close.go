package tcp

// Close begins the local half of connection teardown. It does not itself
// transmit anything; the FIN is latched onto the sequence space and sent by
// a subsequent OnTick, mirroring how Write enqueues bytes for a later write.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	switch c.state {
	case StateSynRcvd, StateEstablished:
		c.state = StateFinWait1
		c.observeState()
		return nil
	case StateCloseWait:
		c.state = StateLastAck
		c.observeState()
		return nil
	case StateFinWait1, StateFinWait2, StateClosing, StateLastAck:
		return nil // already closing.
	}
	return ErrNotConnected
}
