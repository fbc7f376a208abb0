// Package codec implements the msgpack-rpc wire format: it turns messages into
// frames and extracts messages from a growing byte buffer.
//
// The package focuses on:
//   - Encoding Request, Response and Notification as msgpack arrays
//   - Incremental decoding over buffers that may end anywhere inside a frame
//   - Skipping malformed frames without losing the connection
//   - Classifying every decode failure by what the caller should do about it
//
// Key Components:
//
//   - Encode / Append / EncodeTo: Serialize a message into a single frame.
//     Values use the smallest msgpack representation, floats are always float64.
//
//   - Decoder: Stateless decoder over a caller owned buffer. Decode returns
//     either a message with the number of bytes consumed, a need-more-data
//     result or a fatal error. Invalid frames are skipped internally.
//
//   - StreamDecoder: Pulls bytes from an io.Reader and keeps the pending
//     bytes and the invalid frame streak between calls.
//
//   - DecodeError / Kind: Truncated (wait for more bytes), Invalid (skip the
//     frame) and Fatal (close the stream). Only Fatal reaches the caller of
//     Decode, Unmarshal reports all three.
//
// Limits:
//
//	The decoder is bounded by common.CodecConfig: declared lengths above
//	MaxMessageSize are fatal before any allocation, nesting above MaxDepth is
//	invalid and more than MaxInvalidFrames consecutive invalid frames are fatal.
//
// Thread Safety:
//
//	Encode, Decode and Decoder are safe for concurrent use. A StreamDecoder
//	must only be used by one goroutine at a time.
package codec
