package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/metrics"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultWorkersPerConn = 16
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig
	metrics   *metrics.Metrics

	listenerMu sync.Mutex
	listener   net.Listener
	closed     atomic.Bool

	// open connections by id, used to close them on shutdown
	conns *xsync.MapOf[uuid.UUID, net.Conn]
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with the specified connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		metrics:   metrics.New(),
		conns:     xsync.NewMapOf[uuid.UUID, net.Conn](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Metrics() *metrics.Metrics {
	return t.metrics
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.listenerMu.Lock()
	if t.closed.Load() {
		t.listenerMu.Unlock()
		_ = listener.Close()
		return nil
	}
	t.listener = listener
	t.listenerMu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.workersPerConn())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closed.Load() {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			continue
		}

		// Handle the connection in a goroutine
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Close() error {
	t.closed.Store(true)

	t.listenerMu.Lock()
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.listenerMu.Unlock()

	// closing the connections ends their read loops
	t.conns.Range(func(id uuid.UUID, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})

	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// workersPerConn returns the configured number of concurrent handlers per connection
func (t *serverTransport) workersPerConn() int {
	if t.config.Transport.MaxWorkersPerConn > 0 {
		return t.config.Transport.MaxWorkersPerConn
	}
	return defaultWorkersPerConn
}

// handleConnection decodes messages from one connection until it ends or
// becomes unusable. Each message is handled by a worker, replies are
// written by a single writer in the order they are ready.
func (t *serverTransport) handleConnection(conn net.Conn) {
	id := uuid.New()
	t.conns.Store(id, conn)
	t.metrics.ConnOpened()
	defer func() {
		t.conns.Delete(id)
		t.metrics.ConnClosed()
		_ = conn.Close()
	}()

	// connections accepted while closing are dropped right away
	if t.closed.Load() {
		return
	}

	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		Logger.Errorf("Connection %s: failed to upgrade: %v", id, err)
		return
	}

	Logger.Debugf("Connection %s opened from %s", id, conn.RemoteAddr())

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// Replies are queued by the workers and written by one goroutine
	outbox := NewMPSCQueue[[]byte]()
	writerDone := make(chan struct{})
	go t.writeReplies(id, conn, outbox, timeout, writerDone)

	// Create a semaphore to limit concurrent workers for this connection
	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.workersPerConn())
	encoder := codec.NewEncoder(t.config.Codec)

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Handler function that processes messages in worker goroutines
	handleMessage := func(msg common.Message) {
		defer func() {
			<-workerSemaphore // Release semaphore slot
			wg.Done()         // Mark worker as done
		}()

		start := time.Now()
		reply := t.handler(msg)
		t.metrics.ObserveHandle(start)
		Logger.Debugf("Connection %s: handled %s took %s", id, msg.Type(), time.Since(start))

		if reply == nil {
			return
		}

		frame, err := encoder.Encode(reply)
		if err != nil {
			Logger.Errorf("Connection %s: failed to encode reply: %v", id, err)
			return
		}
		outbox.Push(frame)
	}

	decoder := codec.NewStreamDecoder(&deadlineReader{conn: conn, timeout: timeout}, t.config.Codec)
	if t.config.Transport.ReadChunkSize > 0 {
		decoder.SetChunkSize(t.config.Transport.ReadChunkSize)
	}
	decoder.SetObserver(func(res codec.Result) {
		t.metrics.ObserveResult(res)
		if res.InvalidFrames > 0 {
			Logger.Warningf("Connection %s: skipped %d invalid frames (%d bytes)", id, res.InvalidFrames, res.Skipped)
		}
	})

	// Handle messages in a loop
	for {
		msg, err := decoder.Next()

		// Case EOF: Connection closed by client
		if errors.Is(err, io.EOF) {
			Logger.Debugf("Connection %s closed by client", id)
			break
		}

		// Case idle timeout: the client sent nothing for too long
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			Logger.Debugf("Connection %s idle for %s, closing (%d bytes pending)", id, timeout, decoder.Buffered())
			break
		}

		// Case error: the stream can not be trusted anymore, close connection
		if err != nil {
			if !t.closed.Load() {
				t.metrics.ObserveFatal()
				Logger.Errorf("Connection %s: closing after fatal error: %v", id, err)
			}
			break
		}

		// Acquire a slot in the semaphore (blocks if maxWorkersPerConn is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleMessage(msg)
	}

	// Wait for all workers to finish so no reply is lost, then drain the outbox
	wg.Wait()
	outbox.Close()
	<-writerDone
}

// writeReplies writes queued reply frames to the connection until the outbox is closed.
// After a write error the remaining frames are discarded.
func (t *serverTransport) writeReplies(id uuid.UUID, conn net.Conn, outbox *MPSCQueue[[]byte], timeout time.Duration, done chan<- struct{}) {
	defer close(done)

	var failed bool
	for frame := range outbox.Recv() {
		if failed {
			continue
		}

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Connection %s: failed to set write deadline: %v", id, err)
			}
		}

		if _, err := conn.Write(frame); err != nil {
			Logger.Errorf("Connection %s: failed to write reply: %v", id, err)
			failed = true
			// unblock the reader, the peer is gone
			_ = conn.Close()
			continue
		}
		t.metrics.ObserveReply()
	}
}
