// Package rpc provides a msgpack-rpc implementation. Its core is a codec that
// turns messages into frames and back, decoding incrementally from buffers
// that may hold partial frames, several frames or garbage.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the RPC system, including the
//     Value and Message models, configuration structures, and logging.
//
//   - codec: The wire format. Encode writes frames, Decoder and StreamDecoder
//     extract messages, skip invalid frames and classify every failure as
//     truncated, invalid or fatal.
//
//   - serializer: Whole-message serialization (msgpack, tagged JSON)
//     for converting between Message values and byte arrays.
//
//   - metrics: Prometheus counters for decoded messages, skipped bytes,
//     fatal errors and connections.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - client: RPC client that matches responses to calls by id.
//
//   - server: RPC server components that dispatch incoming messages to
//     registered methods.
package rpc
