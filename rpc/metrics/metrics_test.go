package metrics

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveResult(t *testing.T) {
	m := New()

	m.ObserveResult(codec.Result{Message: common.NewRequest(1, "m"), Consumed: 10, Skipped: 3, InvalidFrames: 2})
	m.ObserveResult(codec.Result{Message: common.NewNotification("n"), Consumed: 5})
	m.ObserveResult(codec.Result{Message: common.NewResultResponse(1, nil), Consumed: 5})
	m.ObserveResult(codec.Result{Consumed: 4, Skipped: 4, InvalidFrames: 4})

	s := m.Snapshot()
	assert.Equal(t, uint64(1), s.Requests)
	assert.Equal(t, uint64(1), s.Responses)
	assert.Equal(t, uint64(1), s.Notifications)
	assert.Equal(t, uint64(24), s.BytesConsumed)
	assert.Equal(t, uint64(7), s.BytesSkipped)
	assert.Equal(t, uint64(6), s.InvalidFrames)
}

func TestConnections(t *testing.T) {
	m := New()
	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.ObserveFatal()
	m.ObserveReply()

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.ConnsTotal)
	assert.Equal(t, uint64(1), s.ConnsActive)
	assert.Equal(t, uint64(1), s.FatalErrors)
	assert.Equal(t, uint64(1), s.RepliesSent)
}

func TestSetsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ConnOpened()
	assert.Equal(t, uint64(0), b.Snapshot().ConnsTotal)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveResult(codec.Result{Message: common.NewRequest(1, "m"), Consumed: 10})
	m.ObserveHandle(time.Now().Add(-time.Millisecond))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `mrpc_messages_decoded_total{type="request"} 1`)
	assert.Contains(t, body, `mrpc_bytes_consumed_total 10`)
	assert.Contains(t, body, `mrpc_handle_duration_seconds_count 1`)

	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	assert.Equal(t, body, buf.String())
}
