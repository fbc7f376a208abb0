// Package http implements an HTTP based transport for the RPC system.
//
// The client posts every message as its own request to /rpc, the server
// answers with the concatenated reply frames of all messages in the request
// body (application/msgpack). Notifications produce an empty body. The body
// is decoded with the same skip-and-resync loop as the socket transports, a
// fatal decode error is answered with 400 Bad Request.
//
// Replies received by the client are queued until Receive picks them up,
// so the client can be used like a stream based transport. Receive gives up
// after TimeoutSecond with transport.ErrReceiveTimeout, the transport stays
// usable after that.
package http
