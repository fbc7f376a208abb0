// Package transport defines the interfaces and abstractions for moving
// msgpack-rpc messages between peers. It provides a common contract that all
// transport implementations must fulfill, enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Streaming messages in both directions without an extra framing layer
//   - Enabling multiple transport implementations (HTTP, TCP, Unix sockets)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and sending and receiving messages.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     decode incoming messages and pass them to the registered handler.
//
//   - ServerHandleFunc: Function type for message handling callbacks.
//
// Every message is a self delimiting msgpack value, so the transports write
// frames back to back and rely on the incremental decoder of the codec package
// to split the stream. Malformed frames are skipped, only fatal decode errors
// close a connection.
package transport
