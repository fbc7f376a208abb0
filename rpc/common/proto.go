package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message is one decoded frame of the protocol. The set of implementations
// is closed: Request, Response and Notification.
type Message interface {
	// Type returns the wire tag of the message
	Type() MessageType
	isMessage()
}

// Request is a call that expects a Response carrying the same ID.
// Uniqueness of the ID across in-flight requests is up to the caller.
type Request struct {
	ID     uint32
	Method string
	Params []Value
}

// Notification is a call without ID. It can never be answered.
type Notification struct {
	Method string
	Params []Value
}

// Response answers the Request with the same ID. It carries either a result
// or an error value, never both. Use NewResultResponse or NewErrorResponse
// to create one.
type Response struct {
	ID      uint32
	value   Value
	isError bool
}

func (Request) Type() MessageType      { return MsgTRequest }
func (Response) Type() MessageType     { return MsgTResponse }
func (Notification) Type() MessageType { return MsgTNotification }

func (Request) isMessage()      {}
func (Response) isMessage()     {}
func (Notification) isMessage() {}

// IsError reports whether the response carries an error value
func (r Response) IsError() bool {
	return r.isError
}

// Result returns the success value (Nil for error responses)
func (r Response) Result() Value {
	if r.isError || r.value == nil {
		return Nil{}
	}
	return r.value
}

// Err returns the error value (Nil for success responses)
func (r Response) Err() Value {
	if !r.isError || r.value == nil {
		return Nil{}
	}
	return r.value
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a new Request
func NewRequest(id uint32, method string, params ...Value) Request {
	if params == nil {
		params = []Value{}
	}
	return Request{
		ID:     id,
		Method: method,
		Params: params,
	}
}

// NewNotification creates a new Notification
func NewNotification(method string, params ...Value) Notification {
	if params == nil {
		params = []Value{}
	}
	return Notification{
		Method: method,
		Params: params,
	}
}

// NewResultResponse creates a successful Response. A nil result is stored as Nil.
func NewResultResponse(id uint32, result Value) Response {
	if result == nil {
		result = Nil{}
	}
	return Response{
		ID:    id,
		value: result,
	}
}

// NewErrorResponse creates a failed Response
func NewErrorResponse(id uint32, err Value) Response {
	if err == nil {
		err = Nil{}
	}
	return Response{
		ID:      id,
		value:   err,
		isError: true,
	}
}

// NewErrorResponseFromError creates a failed Response with the error text as String
func NewErrorResponseFromError(id uint32, err error) Response {
	return NewErrorResponse(id, String(err.Error()))
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// MessagesEqual compares all observable fields of two messages
func MessagesEqual(a, b Message) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch x := a.(type) {
	case Request:
		y, ok := b.(Request)
		return ok && x.ID == y.ID && x.Method == y.Method && valuesEqual(x.Params, y.Params)
	case Response:
		y, ok := b.(Response)
		return ok && x.ID == y.ID && x.isError == y.isError && Equal(x.value, y.value)
	case Notification:
		y, ok := b.(Notification)
		return ok && x.Method == y.Method && valuesEqual(x.Params, y.Params)
	default:
		panic(fmt.Sprintf("unexpected message type %T", a))
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType is the leading tag of every frame on the wire.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTRequest:
		return "request"
	case MsgTResponse:
		return "response"
	case MsgTNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "request":
		*t = MsgTRequest
	case "response":
		*t = MsgTResponse
	case "notification":
		*t = MsgTNotification
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTRequest      MessageType = 0 // Call expecting a response
	MsgTResponse     MessageType = 1 // Answer to a request
	MsgTNotification MessageType = 2 // Call without response
)
