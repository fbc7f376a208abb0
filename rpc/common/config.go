package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Codec configuration struct
// --------------------------------------------------------------------------

// CodecConfig bounds the work the decoder is willing to do on a single stream
type CodecConfig struct {
	// MaxMessageSize is the largest frame in bytes that will be buffered.
	// Declared lengths above it, or incomplete frames growing beyond it, are fatal.
	// 0 disables the limit.
	MaxMessageSize int
	// MaxInvalidFrames is the number of consecutive invalid frames that are
	// skipped before the stream is declared unusable. 0 means unbounded.
	MaxInvalidFrames int
	// MaxDepth is the deepest nesting of arrays and maps accepted inside a frame
	MaxDepth int
}

// DefaultCodecConfig returns the codec limits used when nothing else is configured
func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		MaxMessageSize:   16 * 1024 * 1024, // 16 MB
		MaxInvalidFrames: 1024,
		MaxDepth:         100,
	}
}

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds settings shared by all socket based transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds settings only applied to tcp connections
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec is applied if > 0, otherwise the OS default is kept
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the transport settings of the server
type ServerTransportConfig struct {
	// Endpoint the server listens on (e.g. 0.0.0.0:8080, /tmp/mrpc.sock)
	Endpoint string
	// MaxWorkersPerConn limits how many messages of one connection are handled concurrently
	MaxWorkersPerConn int
	// ReadChunkSize is the number of bytes read from a connection at once
	ReadChunkSize int

	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	Transport ServerTransportConfig
	Codec     CodecConfig

	// TimeoutSecond is the idle read and the write timeout of a connection (0 = none)
	TimeoutSecond int64

	// MetricsEndpoint exposes prometheus metrics over http if set (e.g. :9090)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers per Connection", strconv.Itoa(c.Transport.MaxWorkersPerConn))
	addField("Read Chunk Size", fmt.Sprintf("%d bytes", c.Transport.ReadChunkSize))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	// Codec limits
	writeCodecSection(c.Codec, addSection, addField)

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport settings of a client
type ClientTransportConfig struct {
	// Endpoint of the server (e.g. localhost:8080, /tmp/mrpc.sock, http://localhost:8080)
	Endpoint string
	// RetryCount is how often connecting is attempted before giving up
	RetryCount int

	SocketConf
	TCPConf
}

// ClientConfig holds all configuration parameters for a RPC client
type ClientConfig struct {
	Transport     ClientTransportConfig
	Codec         CodecConfig
	TimeoutSecond int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))

	writeCodecSection(c.Codec, addSection, addField)

	return sb.String()
}

// writeCodecSection appends the codec limits to a config printout
func writeCodecSection(c CodecConfig, addSection func(string), addField func(string, string)) {
	limit := func(v int, unit string) string {
		if v <= 0 {
			return "unbounded"
		}
		return fmt.Sprintf("%d%s", v, unit)
	}

	addSection("Codec")
	addField("Max Message Size", limit(c.MaxMessageSize, " bytes"))
	addField("Max Invalid Frames", limit(c.MaxInvalidFrames, ""))
	addField("Max Depth", limit(c.MaxDepth, ""))
}
