// Package common provides core data structures and utilities shared across
// the RPC system. It defines the payload model, the message protocol and the
// configuration structures used by the other packages.
//
// The package focuses on:
//   - The self-describing Value model used as payload of every call
//   - Message protocol definition (Request, Response, Notification)
//   - Configuration structures for client, server and codec
//   - Custom logging implementation integrated with Dragonboat's logger registry
//
// Key Components:
//
//   - Value: Closed sum type over Nil, Bool, Integer, Float, String, Binary,
//     Array, Map and Extension. Equal compares values structurally and
//     ValueOf converts native go values (e.g. decoded json) into Values.
//
//   - Message: Closed sum type over Request, Response and Notification,
//     discriminated on the wire by MessageType (0, 1, 2). A Response carries
//     either a result or an error, enforced by its constructors.
//
//   - ServerConfig / ClientConfig / CodecConfig: Configuration for the
//     transports and the limits of the incremental decoder.
//
//   - Logger: Custom logging implementation that plugs into the logger
//     registry of github.com/lni/dragonboat/v4/logger while providing
//     consistent formatting across the application.
package common
