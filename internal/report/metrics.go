package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psantana5/logcheck/internal/streamer"
)

// Outcome labels for device-bridge commands
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics are boring counters only, kept in a process-local registry.
// There is no listener: the registry is written to a textfile on exit.
type Metrics struct {
	registry *prometheus.Registry

	linesRelayed   prometheus.Counter
	commands       *prometheus.CounterVec
	sessions       *prometheus.CounterVec
	streamDuration prometheus.Gauge
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		linesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logcheck_lines_relayed_total",
			Help: "Device log lines relayed to the console",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logcheck_commands_total",
			Help: "One-shot device bridge commands by step and outcome",
		}, []string{"step", "outcome"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logcheck_stream_sessions_total",
			Help: "Log stream sessions by stop reason",
		}, []string{"reason"}),
		streamDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logcheck_stream_duration_seconds",
			Help: "Duration of the most recent log stream session",
		}),
	}

	m.registry.MustRegister(m.linesRelayed, m.commands, m.sessions, m.streamDuration)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCommand counts one one-shot command
func (m *Metrics) RecordCommand(step string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.commands.WithLabelValues(step, outcome).Inc()
}

// RecordStream updates counters from a finished stream session
func (m *Metrics) RecordStream(res *streamer.Result) {
	if res == nil {
		return
	}
	m.linesRelayed.Add(float64(res.Lines))
	m.sessions.WithLabelValues(string(res.Reason)).Inc()
	m.streamDuration.Set(res.Duration().Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
