// Package cmd implements the command-line interface of mRPC. It provides a
// hierarchical command structure for running a server, talking to it as a
// client and working with frames offline.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a server with the builtin methods ping, echo, add and the log notification
//   - call: Sends a single request (call) or notification (notify)
//   - perf: Benchmarks a running server with concurrent calls
//   - codec: Encodes and decodes frames and benchmarks the codec (encode, decode, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the MRPC_ prefix,
// .env and .env.local files are loaded on start.
//
// See mrpc -help for a list of all commands.
package cmd
