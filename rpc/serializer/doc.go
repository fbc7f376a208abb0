// Package serializer provides whole-message serialization for the RPC system.
// It defines a common interface and two implementations for turning a single
// message into bytes and back.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Exposing the msgpack-rpc wire format for one message at a time
//   - Offering a human readable format for tooling and debugging
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - msgpackSerializerImpl: The wire format of the codec package. Deserialize is
//     strict, the buffer must hold exactly one message, and errors are classified
//     *codec.DecodeError values. Streams should use codec.Decoder instead.
//
//   - jsonSerializerImpl: Tagged json where every value carries its kind
//     ({"t":"int","v":2}), so integers, binaries and extensions survive the round
//     trip. Used by the command line tools to print and read messages.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Serializers are typically created once and reused throughout the application:
//
//	  serializer := serializer.NewMsgpackSerializer()
//	  data, err := serializer.Serialize(message)
//	  // ... send data ...
//	  var receivedMsg common.Message
//	  err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
