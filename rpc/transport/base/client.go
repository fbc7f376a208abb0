package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/codec"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/transport"
	"net"
	"sync"
	"time"
)

// ErrNotConnected is returned when the transport is used before Connect or after Close
var ErrNotConnected = errors.New("transport not connected")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	connMu  sync.RWMutex // Protects conn, decoder and config
	conn    net.Conn
	decoder *codec.StreamDecoder

	writeMu sync.Mutex // Serializes writes
	readMu  sync.Mutex // Serializes reads
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Transport.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	// Close an existing connection
	_ = t.Close()
	t.connMu.Lock()
	t.config = config
	t.connMu.Unlock()

	// We always try at least once
	attempts := config.Transport.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := t.dial(config)
		if err == nil {
			// no read deadline, an idle connection is not an error for a client
			t.connMu.Lock()
			t.conn = conn
			t.decoder = codec.NewStreamDecoder(conn, config.Codec)
			t.connMu.Unlock()

			Logger.Infof("Connected to %s using %s transport", config.Transport.Endpoint, t.connector.GetName())
			return nil
		}

		lastErr = err
		Logger.Debugf("Connection attempt %d/%d failed: %v", i+1, attempts, err)

		if i < attempts-1 {
			time.Sleep(Backoff(i))
		}
	}

	// All attempts failed
	return fmt.Errorf("failed to connect after %d attempts: %w", attempts, lastErr)
}

func (t *clientTransport) Send(msg common.Message) error {
	t.connMu.RLock()
	conn, config := t.conn, t.config
	t.connMu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	frame, err := codec.NewEncoder(config.Codec).Encode(msg)
	if err != nil {
		return err
	}

	// Lock the connection only for writing
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if config.TimeoutSecond > 0 {
		timeout := time.Duration(config.TimeoutSecond) * time.Second
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	_, err = conn.Write(frame)
	return err
}

func (t *clientTransport) Receive() (common.Message, error) {
	t.connMu.RLock()
	decoder := t.decoder
	t.connMu.RUnlock()

	if decoder == nil {
		return nil, ErrNotConnected
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()
	return decoder.Next()
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.decoder = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial connects to the endpoint and applies the protocol specific settings
func (t *clientTransport) dial(config common.ClientConfig) (net.Conn, error) {
	conn, err := t.connector.Connect(config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Transport.Endpoint, err)
	}

	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", config.Transport.Endpoint, err)
	}

	return conn, nil
}
