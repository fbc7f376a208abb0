package codec

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"io"
	"unicode/utf8"
)

// defaultEncoder backs the package level Encode, Append and EncodeTo functions
var defaultEncoder = NewEncoder(common.DefaultCodecConfig())

// Encoder serializes messages within the limits of a CodecConfig. Values
// nested deeper than MaxDepth and frames longer than MaxMessageSize are
// refused, so a decoder with the same limits never drops what was sent.
// It is stateless and safe for concurrent use.
type Encoder struct {
	config common.CodecConfig
}

// NewEncoder creates a new encoder with the given limits
func NewEncoder(config common.CodecConfig) *Encoder {
	return &Encoder{config: config}
}

// Encode serializes a message into a single frame with the default limits:
//
//	Request      -> [0, id, method, params]
//	Response     -> [1, id, error|nil, result|nil]
//	Notification -> [2, method, params]
//
// It only fails for messages that can not be represented, e.g. strings or
// arrays longer than 2^32-1 or an error response whose error value is Nil,
// or that exceed the limits.
func Encode(msg common.Message) ([]byte, error) {
	return defaultEncoder.Encode(msg)
}

// Append encodes msg with the default limits and appends the frame to dst.
// On error dst is returned unchanged.
func Append(dst []byte, msg common.Message) ([]byte, error) {
	return defaultEncoder.Append(dst, msg)
}

// EncodeTo encodes msg with the default limits and writes the frame to w with a single Write call
func EncodeTo(w io.Writer, msg common.Message) error {
	return defaultEncoder.EncodeTo(w, msg)
}

// Encode serializes a message into a single frame
func (e *Encoder) Encode(msg common.Message) ([]byte, error) {
	return e.Append(nil, msg)
}

// Append encodes msg and appends the frame to dst.
// On error dst is returned unchanged.
func (e *Encoder) Append(dst []byte, msg common.Message) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	if err := encodeMessage(buf, msg, e.config.MaxDepth); err != nil {
		return dst, err
	}

	if size := buf.Len() - len(dst); e.config.MaxMessageSize > 0 && size > e.config.MaxMessageSize {
		return dst, fmt.Errorf("%w: frame of %d bytes, limit %d", ErrMessageTooLarge, size, e.config.MaxMessageSize)
	}
	return buf.Bytes(), nil
}

// EncodeTo encodes msg and writes the frame to w with a single Write call
func (e *Encoder) EncodeTo(w io.Writer, msg common.Message) error {
	frame, err := e.Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// encodeMessage writes the wire form of msg to buf
// The frame itself is at depth 0, params and response values at depth 1,
// matching the depth the decoder counts.
func encodeMessage(buf *bytes.Buffer, msg common.Message, maxDepth int) error {
	w := newValueWriter(buf, maxDepth)

	switch m := msg.(type) {
	case common.Request:
		if !utf8.ValidString(m.Method) {
			return fmt.Errorf("%w: method is not utf-8", ErrFieldType)
		}
		w.arrayLen(4)
		w.uint(uint64(common.MsgTRequest))
		w.uint(uint64(m.ID))
		w.string(m.Method)
		w.values(m.Params, 1)
	case common.Response:
		// the wire can not tell an error response with a nil error from a success
		if m.IsError() && common.IsNil(m.Err()) {
			return ErrNilErrorValue
		}
		w.arrayLen(4)
		w.uint(uint64(common.MsgTResponse))
		w.uint(uint64(m.ID))
		w.value(m.Err(), 1)
		w.value(m.Result(), 1)
	case common.Notification:
		if !utf8.ValidString(m.Method) {
			return fmt.Errorf("%w: method is not utf-8", ErrFieldType)
		}
		w.arrayLen(3)
		w.uint(uint64(common.MsgTNotification))
		w.string(m.Method)
		w.values(m.Params, 1)
	default:
		return fmt.Errorf("codec: unsupported message type %T", msg)
	}

	return w.err
}
