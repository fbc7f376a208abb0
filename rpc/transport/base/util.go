package base

import (
	"github.com/lni/dragonboat/v4/logger"
	"math/rand"
	"net"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// deadlineReader renews the read deadline of a connection before every read,
// so the timeout applies to idle time and not to the lifetime of the connection
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return 0, err
		}
	}
	return r.conn.Read(p)
}

// Backoff returns the wait time before retry attempt (0 based): exponential
// growth from 50ms with a random jitter of +-10%
func Backoff(attempt int) time.Duration {
	if attempt > 10 {
		attempt = 10
	}
	backoffMs := float64(int(50) << attempt)
	jitter := backoffMs * (0.9 + 0.2*rand.Float64())
	return time.Duration(jitter) * time.Millisecond
}
