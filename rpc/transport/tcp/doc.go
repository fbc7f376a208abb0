// Package tcp implements the TCP socket based transport of the RPC system.
// It provides concrete implementations of the base package's connector
// interfaces and applies the socket options of common.SocketConf and
// common.TCPConf to every connection.
//
// This package builds on the base package's transport functionality, inheriting
// the streaming decoder per connection, the bounded worker pool and the
// single writer per connection. See the base package documentation for details.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
package tcp
