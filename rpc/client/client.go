package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")

	// ErrClosed is returned by calls on a closed client and by calls pending while it is closed
	ErrClosed = errors.New("rpc client closed")
	// ErrTimeout is returned if no response arrived within the configured timeout
	ErrTimeout = errors.New("rpc call timed out")
)

// CallError is the error of a call answered with an error response
type CallError struct {
	Method string
	// Value is the error value sent by the server
	Value common.Value
}

func (e *CallError) Error() string {
	if s, ok := e.Value.(common.String); ok {
		return fmt.Sprintf("rpc %s: %s", e.Method, string(s))
	}
	return fmt.Sprintf("rpc %s: %s error", e.Method, e.Value.Kind())
}

// NewRPCClient connects the transport and starts reading responses
//
// Usage:
//
//	c, err := client.NewRPCClient(config, tcp.NewTCPClientTransport())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	sum, err := c.Call("add", common.Int(2), common.Int(2))
func NewRPCClient(config common.ClientConfig, transport transport.IRPCClientTransport) (*RPCClient, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	c := &RPCClient{
		config:    config,
		transport: transport,
		pending:   xsync.NewMapOf[uint32, chan common.Response](),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// RPCClient sends requests over a client transport and matches the
// responses to the calls by their id. It is safe for concurrent use.
type RPCClient struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport

	nextID  atomic.Uint32
	pending *xsync.MapOf[uint32, chan common.Response]

	closeOnce sync.Once
	done      chan struct{}
	err       error // set before done is closed
}

// Call sends a request and waits for its response.
// An error response is returned as *CallError.
func (c *RPCClient) Call(method string, params ...common.Value) (common.Value, error) {
	id := c.nextID.Add(1)
	ch := make(chan common.Response, 1)
	c.pending.Store(id, ch)
	defer c.pending.Delete(id)

	select {
	case <-c.done:
		return nil, c.err
	default:
	}

	if err := c.transport.Send(common.NewRequest(id, method, params...)); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var timeoutCh <-chan time.Time
	if c.config.TimeoutSecond > 0 {
		timer := time.NewTimer(time.Duration(c.config.TimeoutSecond) * time.Second)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case resp := <-ch:
		if resp.IsError() {
			return nil, &CallError{Method: method, Value: resp.Err()}
		}
		return resp.Result(), nil
	case <-c.done:
		return nil, c.err
	case <-timeoutCh:
		return nil, fmt.Errorf("%w: %s (id %d)", ErrTimeout, method, id)
	}
}

// Notify sends a notification, there is no response
func (c *RPCClient) Notify(method string, params ...common.Value) error {
	select {
	case <-c.done:
		return c.err
	default:
	}
	return c.transport.Send(common.NewNotification(method, params...))
}

// Close closes the transport and fails all pending calls with ErrClosed
func (c *RPCClient) Close() error {
	c.shutdown(ErrClosed)
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// shutdown records the terminal error once and wakes all waiting calls
func (c *RPCClient) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
	})
}

// readLoop delivers responses to the waiting calls until the transport fails
func (c *RPCClient) readLoop() {
	for {
		msg, err := c.transport.Receive()
		if errors.Is(err, transport.ErrReceiveTimeout) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				Logger.Infof("Connection closed by server")
				err = ErrClosed
			} else {
				Logger.Debugf("Receive failed: %v", err)
				err = fmt.Errorf("%w: %w", ErrClosed, err)
			}
			c.shutdown(err)
			return
		}

		resp, ok := msg.(common.Response)
		if !ok {
			Logger.Warningf("Dropping unexpected %s from server", msg.Type())
			continue
		}

		ch, ok := c.pending.LoadAndDelete(resp.ID)
		if !ok {
			// the call timed out or the server sent an unknown id
			Logger.Warningf("Dropping response with unknown id %d", resp.ID)
			continue
		}
		ch <- resp
	}
}
