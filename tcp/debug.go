package tcp

import (
	"context"
	"log/slog"

	"github.com/soypat/usertcp/internal"
)

func (c *Connection) logenabled(lvl slog.Level) bool {
	return internal.HeapAllocDebugging || (c.log != nil && c.log.Handler().Enabled(context.Background(), lvl))
}

func (c *Connection) logattrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	internal.LogAttrs(c.log, lvl, msg, attrs...)
}

func (c *Connection) debug(msg string, attrs ...slog.Attr) {
	c.logattrs(slog.LevelDebug, msg, attrs...)
}

func (c *Connection) trace(msg string, attrs ...slog.Attr) {
	c.logattrs(internal.LevelTrace, msg, attrs...)
}

func (c *Connection) logerr(msg string, attrs ...slog.Attr) {
	c.logattrs(slog.LevelError, msg, attrs...)
}

func (c *Connection) traceSnd(msg string) {
	c.trace(msg,
		slog.String("state", c.state.String()),
		slog.Uint64("snd.nxt", uint64(c.snd.NXT)),
		slog.Uint64("snd.una", uint64(c.snd.UNA)),
		slog.Uint64("snd.wnd", uint64(c.snd.WND)),
	)
}

func (c *Connection) traceRcv(msg string) {
	c.trace(msg,
		slog.String("state", c.state.String()),
		slog.Uint64("rcv.nxt", uint64(c.rcv.NXT)),
		slog.Uint64("rcv.wnd", uint64(c.rcv.WND)),
	)
}

func (c *Connection) traceSeg(msg string, seg Segment) {
	if c.logenabled(internal.LevelTrace) {
		c.trace(msg,
			slog.Uint64("seg.seq", uint64(seg.SEQ)),
			slog.Uint64("seg.ack", uint64(seg.ACK)),
			slog.Uint64("seg.wnd", uint64(seg.WND)),
			slog.String("seg.flags", seg.Flags.String()),
			slog.Uint64("seg.data", uint64(seg.DATALEN)),
		)
	}
}
