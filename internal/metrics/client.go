package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records notification socket activity.
type ClientMetrics struct {
	framesReceived  prometheus.Counter
	framesMalformed prometheus.Counter
	reconnects      prometheus.Counter
	commandsSent    *prometheus.CounterVec
	connectionState prometheus.Gauge
}

// NewClientMetrics registers the client metrics on the provided registerer.
// A nil registerer yields a no-op value.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	framesReceived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_frames_received_total",
		Help: "Notification frames decoded from the socket.",
	})
	framesMalformed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_frames_malformed_total",
		Help: "Socket frames dropped because they could not be decoded.",
	})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_reconnect_attempts_total",
		Help: "Automatic reconnect attempts scheduled after an unexpected close.",
	})
	commandsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_commands_sent_total",
		Help: "Commands written to the socket.",
	}, []string{"command"})
	connectionState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notify_connection_state",
		Help: "Current connection state (0 idle, 1 connecting, 2 open, 3 closed, 4 disconnected).",
	})
	reg.MustRegister(framesReceived, framesMalformed, reconnects, commandsSent, connectionState)
	return &ClientMetrics{
		framesReceived:  framesReceived,
		framesMalformed: framesMalformed,
		reconnects:      reconnects,
		commandsSent:    commandsSent,
		connectionState: connectionState,
	}
}

func (m *ClientMetrics) IncFramesReceived() {
	if m == nil || m.framesReceived == nil {
		return
	}
	m.framesReceived.Inc()
}

func (m *ClientMetrics) IncFramesMalformed() {
	if m == nil || m.framesMalformed == nil {
		return
	}
	m.framesMalformed.Inc()
}

func (m *ClientMetrics) IncReconnects() {
	if m == nil || m.reconnects == nil {
		return
	}
	m.reconnects.Inc()
}

// IncCommandsSent increments the sent counter for the named command.
func (m *ClientMetrics) IncCommandsSent(command string) {
	if m == nil || m.commandsSent == nil {
		return
	}
	m.commandsSent.WithLabelValues(normalizeLabel(command)).Inc()
}

// SetConnectionState records the numeric connection state.
func (m *ClientMetrics) SetConnectionState(state int) {
	if m == nil || m.connectionState == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
