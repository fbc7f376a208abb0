// Package unix implements a transport layer for the RPC system using Unix
// domain sockets. It provides optimized communication for processes running
// on the same machine.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting all core functionality like stream decoding, the worker pool
// and error handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners, an existing socket file
//     at the endpoint is removed first
package unix
