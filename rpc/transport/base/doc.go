// Package base provides a foundation for the stream based transport layers of
// the RPC system, implementing the core functionality independent of the
// specific network protocol (TCP, Unix sockets, etc.). It serves as a base
// layer that can be extended with protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - Splitting the byte stream of a connection into messages with codec.StreamDecoder
//   - Surviving malformed frames, only fatal decode errors close a connection
//   - Robust error handling with retries and backoff when connecting
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Core client implementation holding a single connection.
//     Send writes one frame per call, Receive returns the next decoded message.
//
//   - serverTransport: Core server implementation that accepts connections and
//     passes every decoded message to the registered handler.
//
//   - MPSCQueue: Unbounded lock-free multi-producer single-consumer queue used
//     as the reply outbox of a connection.
//
// Connection Handling (server):
//
//   - Every connection gets an id (uuid) and is tracked in a concurrent map
//     so Close can shut down all of them.
//
//   - Messages are handled concurrently by up to MaxWorkersPerConn workers.
//     Replies are pushed to the outbox and written by a single writer
//     goroutine, so frames never interleave on the wire. Replies to pipelined
//     requests may therefore arrive in a different order than the requests.
//
//   - TimeoutSecond is applied as idle read timeout and as write timeout.
//
// Thread Safety:
//
//	All public methods are thread-safe. Send and Receive of the client may be
//	called from different goroutines at the same time.
package base
