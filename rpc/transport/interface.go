package transport

import (
	"errors"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/metrics"
)

// ErrReceiveTimeout is returned by Receive of client transports that wait for
// replies with a timeout. The transport stays usable after it.
var ErrReceiveTimeout = errors.New("transport: receive timed out")

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming messages
// This function is called by a server transport layer for every decoded message
// It returns the reply to write back, or nil if nothing should be written
// (e.g. for notifications)
type ServerHandleFunc func(msg common.Message) (reply common.Message)

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called for every message received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and listens for incoming messages
	// It blocks until the transport is closed
	Listen(config common.ServerConfig) error
	// Close stops listening and closes all open connections
	Close() error
	// Metrics returns the counters of this transport
	Metrics() *metrics.Metrics
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send writes a single message to the server
	Send(msg common.Message) error
	// Receive blocks until the next message from the server arrives
	// It returns io.EOF once the server closed the connection,
	// every other error except ErrReceiveTimeout is permanent
	Receive() (common.Message, error)
	// Close closes the transport connection
	Close() error
}
