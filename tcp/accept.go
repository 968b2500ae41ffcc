package tcp

// acceptable implements the RFC 9293 §3.4 segment-acceptability predicate.
// seg.DATALEN/Flags determine the segment's length in sequence space;
// rcv holds the current receive sequence space. Both interval checks use
// the wrap-safe, open-interval IsBetweenWrapped.
func acceptable(rcv *RecvSequenceSpace, seg Segment) bool {
	seglen := seg.LEN()
	wend := rcv.wend()
	switch {
	case seglen == 0 && rcv.WND == 0:
		return seg.SEQ == rcv.NXT
	case seglen == 0:
		return IsBetweenWrapped(rcv.NXT-1, seg.SEQ, wend)
	case rcv.WND == 0:
		return false
	default:
		firstOK := IsBetweenWrapped(rcv.NXT-1, seg.SEQ, wend)
		lastOK := IsBetweenWrapped(rcv.NXT-1, Add(seg.SEQ, seglen)-1, wend)
		return firstOK || lastOK
	}
}
