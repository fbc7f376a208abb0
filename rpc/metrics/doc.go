// Package metrics exposes the counters of the RPC server in the prometheus
// text format using github.com/VictoriaMetrics/metrics.
//
// Every server owns its own metrics set, so several servers (e.g. in tests)
// never share counters. The decode counters are fed by the stream decoders of
// the transport through ObserveResult.
package metrics
