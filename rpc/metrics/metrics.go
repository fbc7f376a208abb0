package metrics

import (
	"io"
	"net/http"
	"time"

	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	vm "github.com/VictoriaMetrics/metrics"
)

// Metrics collects the codec and connection counters of one server.
// All methods are safe for concurrent use.
type Metrics struct {
	set *vm.Set

	requests      *vm.Counter
	responses     *vm.Counter
	notifications *vm.Counter
	bytesConsumed *vm.Counter
	bytesSkipped  *vm.Counter
	invalidFrames *vm.Counter
	fatalErrors   *vm.Counter
	repliesSent   *vm.Counter
	connsTotal    *vm.Counter
	connsActive   *vm.Counter
	handleTime    *vm.Histogram
}

// New creates a new independent metrics set
func New() *Metrics {
	s := vm.NewSet()
	return &Metrics{
		set:           s,
		requests:      s.NewCounter(`mrpc_messages_decoded_total{type="request"}`),
		responses:     s.NewCounter(`mrpc_messages_decoded_total{type="response"}`),
		notifications: s.NewCounter(`mrpc_messages_decoded_total{type="notification"}`),
		bytesConsumed: s.NewCounter(`mrpc_bytes_consumed_total`),
		bytesSkipped:  s.NewCounter(`mrpc_bytes_skipped_total`),
		invalidFrames: s.NewCounter(`mrpc_invalid_frames_total`),
		fatalErrors:   s.NewCounter(`mrpc_fatal_errors_total`),
		repliesSent:   s.NewCounter(`mrpc_replies_sent_total`),
		connsTotal:    s.NewCounter(`mrpc_connections_total`),
		connsActive:   s.NewCounter(`mrpc_connections_active`),
		handleTime:    s.NewHistogram(`mrpc_handle_duration_seconds`),
	}
}

// --------------------------------------------------------------------------
// Observers
// --------------------------------------------------------------------------

// ObserveResult records a decode result, it fits codec.StreamDecoder.SetObserver
func (m *Metrics) ObserveResult(res codec.Result) {
	m.bytesConsumed.Add(res.Consumed)
	m.bytesSkipped.Add(res.Skipped)
	m.invalidFrames.Add(res.InvalidFrames)

	if res.Message == nil {
		return
	}
	switch res.Message.Type() {
	case common.MsgTRequest:
		m.requests.Inc()
	case common.MsgTResponse:
		m.responses.Inc()
	case common.MsgTNotification:
		m.notifications.Inc()
	}
}

// ObserveFatal records a connection closed because of a fatal decode error
func (m *Metrics) ObserveFatal() {
	m.fatalErrors.Inc()
}

// ObserveReply records a reply written to a connection
func (m *Metrics) ObserveReply() {
	m.repliesSent.Inc()
}

// ObserveHandle records the duration of a handler call started at start
func (m *Metrics) ObserveHandle(start time.Time) {
	m.handleTime.UpdateDuration(start)
}

// ConnOpened records a new connection
func (m *Metrics) ConnOpened() {
	m.connsTotal.Inc()
	m.connsActive.Inc()
}

// ConnClosed records a closed connection
func (m *Metrics) ConnClosed() {
	m.connsActive.Dec()
}

// --------------------------------------------------------------------------
// Snapshot and Export
// --------------------------------------------------------------------------

// Snapshot is a point in time copy of the counters
type Snapshot struct {
	Requests      uint64
	Responses     uint64
	Notifications uint64
	BytesConsumed uint64
	BytesSkipped  uint64
	InvalidFrames uint64
	FatalErrors   uint64
	RepliesSent   uint64
	ConnsTotal    uint64
	ConnsActive   uint64
}

// Snapshot returns the current counter values
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Requests:      m.requests.Get(),
		Responses:     m.responses.Get(),
		Notifications: m.notifications.Get(),
		BytesConsumed: m.bytesConsumed.Get(),
		BytesSkipped:  m.bytesSkipped.Get(),
		InvalidFrames: m.invalidFrames.Get(),
		FatalErrors:   m.fatalErrors.Get(),
		RepliesSent:   m.repliesSent.Get(),
		ConnsTotal:    m.connsTotal.Get(),
		ConnsActive:   m.connsActive.Get(),
	}
}

// WritePrometheus writes all metrics in the prometheus text format
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// Handler returns a http handler serving the metrics
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m.WritePrometheus(w)
	})
}
