// Package server implements the RPC server. It connects a server transport,
// which decodes messages from the wire, to an adapter that turns every
// message into a reply.
//
// The package focuses on:
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Dispatching requests and notifications by method name
//   - Exposing transport metrics and the profiler on a separate endpoint
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that maps one message to an optional reply.
//
//   - MethodServerAdapter: Adapter with a registry of MethodFunc and NotificationFunc
//     values. Unknown methods are answered with the error "method not found: <method>",
//     errors and panics of a MethodFunc become error responses.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and adapter.
//
// Usage Example:
//
//	adapter := server.NewMethodServerAdapter()
//	adapter.Register("add", func(params []common.Value) (common.Value, error) {
//	  ...
//	})
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  common.ServerConfig{
//	    Transport:       common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	    Codec:           common.DefaultCodecConfig(),
//	    MetricsEndpoint: "127.0.0.1:9090",
//	    LogLevel:        "info",
//	  },
//	  tcp.NewTCPServerTransport(),
//	  adapter,
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// The server does no request correlation and enforces no handler timeouts.
// Replies carry the id of their request, clients match them up.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Handlers registered with the adapter may be
//	called concurrently. Serve should be called only once.
package server
