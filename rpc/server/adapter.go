package server

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrMethodNotFound is the error of requests to unregistered methods
var ErrMethodNotFound = errors.New("method not found")

// NewMethodServerAdapter creates an adapter that dispatches messages by method name.
// Methods can be registered at any time, also while the server is running.
func NewMethodServerAdapter() *MethodServerAdapter {
	return &MethodServerAdapter{
		methods:       xsync.NewMapOf[string, MethodFunc](),
		notifications: xsync.NewMapOf[string, NotificationFunc](),
	}
}

// MethodServerAdapter maps method names to functions
type MethodServerAdapter struct {
	methods       *xsync.MapOf[string, MethodFunc]
	notifications *xsync.MapOf[string, NotificationFunc]
}

// Register registers fn for requests to method, replacing an existing one
func (a *MethodServerAdapter) Register(method string, fn MethodFunc) {
	a.methods.Store(method, fn)
}

// RegisterNotification registers fn for notifications of method
func (a *MethodServerAdapter) RegisterNotification(method string, fn NotificationFunc) {
	a.notifications.Store(method, fn)
}

// Methods returns the number of registered request and notification methods
func (a *MethodServerAdapter) Methods() (requests, notifications int) {
	return a.methods.Size(), a.notifications.Size()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (a *MethodServerAdapter) Handle(msg common.Message) common.Message {
	switch m := msg.(type) {
	case common.Request:
		fn, ok := a.methods.Load(m.Method)
		if !ok {
			return common.NewErrorResponseFromError(m.ID, fmt.Errorf("%w: %s", ErrMethodNotFound, m.Method))
		}
		result, err := call(fn, m.Params)
		if err != nil {
			return common.NewErrorResponseFromError(m.ID, err)
		}
		return common.NewResultResponse(m.ID, result)

	case common.Notification:
		fn, ok := a.notifications.Load(m.Method)
		if !ok {
			Logger.Debugf("Dropping notification for unknown method %q", m.Method)
			return nil
		}
		if err := notify(fn, m.Params); err != nil {
			Logger.Errorf("Notification %q failed: %v", m.Method, err)
		}
		return nil

	default:
		// a server has no outstanding calls, responses are dropped
		Logger.Warningf("Dropping unexpected %s", msg.Type())
		return nil
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// call runs fn and turns a panic into an error
func call(fn MethodFunc, params []common.Value) (result common.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return fn(params)
}

// notify runs fn and turns a panic into an error
func notify(fn NotificationFunc, params []common.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	fn(params)
	return nil
}
