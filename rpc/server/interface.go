package server

import (
	"github.com/ValentinKolb/mRPC/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for turning incoming messages into replies
type IRPCServerAdapter interface {
	// Handle handles a single decoded message.
	// Requests must be answered with a Response carrying the same id,
	// failures are reported as error Responses and never as Go errors.
	// Notifications and stray Responses return nil, nothing is sent back.
	Handle(msg common.Message) (reply common.Message)
}

// MethodFunc implements a method that is called with a request
type MethodFunc func(params []common.Value) (common.Value, error)

// NotificationFunc implements a method that is called with a notification
type NotificationFunc func(params []common.Value)
