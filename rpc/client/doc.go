// Package client implements the RPC client. It sends requests over any
// client transport and matches the responses to the waiting calls.
//
// The package focuses on:
//   - Request ids assigned per client, responses may arrive in any order
//   - Many concurrent calls over a single connection
//   - Error responses returned as *CallError carrying the server's error value
//
// Key Components:
//
//   - NewRPCClient: Factory function that connects the transport and starts a
//     reader goroutine delivering responses to the pending calls.
//
//   - RPCClient.Call: Sends a request and waits for its response, bounded by
//     TimeoutSecond of the ClientConfig.
//
//   - RPCClient.Notify: Sends a notification, there is no response.
//
// Usage Example:
//
//	c, err := client.NewRPCClient(common.ClientConfig{
//	  Transport:     common.ClientTransportConfig{Endpoint: "localhost:8080", RetryCount: 3},
//	  Codec:         common.DefaultCodecConfig(),
//	  TimeoutSecond: 5,
//	}, tcp.NewTCPClientTransport())
//
//	sum, err := c.Call("add", common.Int(2), common.Int(2))
//	var callErr *client.CallError
//	if errors.As(err, &callErr) {
//	  // the server answered with an error
//	}
//
// Once the transport fails or the server closes the connection every pending
// and future call returns an error wrapping ErrClosed. Create a new client to
// reconnect.
//
// Thread Safety:
//
//	All methods are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
