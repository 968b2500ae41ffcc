package tcp

// SendSequenceSpace tracks the local (sending) side's view of the connection,
// per RFC 9293 §3.3.1 figure 4.
type SendSequenceSpace struct {
	ISS Value // initial send sequence number, fixed at connection creation.
	UNA Value // oldest unacknowledged sequence number.
	NXT Value // next sequence number to send.
	WND Size  // send window, as advertised by the peer.
	UP  bool  // urgent pointer in effect (recorded, not acted on).
	WL1 Value // seq number used for last window update.
	WL2 Value // ack number used for last window update.
}

// wend returns the end of the usable send window: UNA + WND.
func (snd *SendSequenceSpace) wend() Value { return Add(snd.UNA, snd.WND) }

// RecvSequenceSpace tracks the local (receiving) side's view of the connection,
// per RFC 9293 §3.3.1 figure 5.
type RecvSequenceSpace struct {
	IRS Value // initial receive sequence number, the peer's ISN.
	NXT Value // next sequence number expected from the peer.
	WND Size  // currently advertised receive window.
	UP  bool  // urgent pointer in effect (recorded, not acted on).
}

// wend returns the end of the advertised receive window: NXT + WND.
func (rcv *RecvSequenceSpace) wend() Value { return Add(rcv.NXT, rcv.WND) }
