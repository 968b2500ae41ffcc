package tcp

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a set of Prometheus collectors an application can register once
// and share across every Connection it drives, correlating individual
// connections by their xid via the "conn" label.
type Metrics struct {
	StateTransitions *prometheus.CounterVec
	Retransmits      *prometheus.CounterVec
	BytesSent        *prometheus.CounterVec
	BytesReceived    *prometheus.CounterVec
	SRTT             *prometheus.GaugeVec
}

// NewMetrics constructs a Metrics set with the given namespace, ready to be
// passed to prometheus.Registerer.MustRegister.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tcp_state_transitions_total",
			Help:      "Count of TCP connection state transitions, labeled by resulting state.",
		}, []string{"conn", "state"}),
		Retransmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tcp_retransmits_total",
			Help:      "Count of segments retransmitted due to an overdue RTT-based timer.",
		}, []string{"conn"}),
		BytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tcp_bytes_sent_total",
			Help:      "Payload bytes placed into outbound segments.",
		}, []string{"conn"}),
		BytesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tcp_bytes_received_total",
			Help:      "Payload bytes accepted from inbound segments into the receive queue.",
		}, []string{"conn"}),
		SRTT: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tcp_srtt_seconds",
			Help:      "Current smoothed round-trip time estimate.",
		}, []string{"conn"}),
	}
}

// Collectors returns every collector in m, for a single MustRegister call.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.StateTransitions, m.Retransmits, m.BytesSent, m.BytesReceived, m.SRTT}
}

// SetMetrics attaches m to the connection; subsequent state transitions and
// I/O observed by OnPacket/OnTick/write update its collectors under the
// connection's id label. A nil Metrics (the default) disables instrumentation.
func (c *Connection) SetMetrics(m *Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
}

// observeState reports a state transition to the attached Metrics, if any.
// Caller must hold c.mu.
func (c *Connection) observeState() {
	if c.metrics == nil {
		return
	}
	c.metrics.StateTransitions.WithLabelValues(c.id.String(), c.state.String()).Inc()
}

// observeSent reports n payload bytes placed into an outbound segment and
// the current SRTT estimate. Caller must hold c.mu.
func (c *Connection) observeSent(n int) {
	if c.metrics == nil {
		return
	}
	id := c.id.String()
	if n > 0 {
		c.metrics.BytesSent.WithLabelValues(id).Add(float64(n))
	}
	c.metrics.SRTT.WithLabelValues(id).Set(c.timers.SRTT().Seconds())
}

// observeReceived reports n payload bytes accepted into incoming. Caller
// must hold c.mu.
func (c *Connection) observeReceived(n int) {
	if c.metrics == nil || n <= 0 {
		return
	}
	c.metrics.BytesReceived.WithLabelValues(c.id.String()).Add(float64(n))
}

// observeRetransmit reports one retransmitted segment. Caller must hold c.mu.
func (c *Connection) observeRetransmit() {
	if c.metrics == nil {
		return
	}
	c.metrics.Retransmits.WithLabelValues(c.id.String()).Inc()
}
