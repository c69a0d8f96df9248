// Package metrics wires the engine's atomic progress counters into
// Prometheus: a struct of prometheus.Counter fields built once via
// promauto.With(reg) against a caller-owned registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine holds the counters the engine updates alongside its own atomic
// progress counters.
type Engine struct {
	PacketsSentTotal     prometheus.Counter
	ProbesSentTotal      prometheus.Counter
	PacketsReceivedTotal prometheus.Counter
	DecodeErrorsTotal    prometheus.Counter
	EncodeErrorsTotal    prometheus.Counter
	ScriptErrorsTotal    prometheus.Counter
}

// NewEngine registers the engine's counters against reg.
func NewEngine(reg prometheus.Registerer) *Engine {
	factory := promauto.With(reg)
	return &Engine{
		PacketsSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pktizr_packets_sent_total",
			Help: "Total number of packets injected onto the link.",
		}),
		ProbesSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pktizr_probes_sent_total",
			Help: "Total number of logical probes sent (chains marked probe=true).",
		}),
		PacketsReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pktizr_packets_received_total",
			Help: "Total number of captured packets accepted by the script.",
		}),
		DecodeErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pktizr_decode_errors_total",
			Help: "Total number of captured frames dropped for a decode error.",
		}),
		EncodeErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pktizr_encode_errors_total",
			Help: "Total number of outbound chains dropped for an encode error.",
		}),
		ScriptErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "pktizr_script_errors_total",
			Help: "Total number of script loop/recv calls that returned an error.",
		}),
	}
}
