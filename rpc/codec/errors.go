package codec

import (
	"errors"
	"fmt"
)

// Kind classifies every decode failure by what the caller can do about it.
// Kinds are ordered by severity.
type Kind uint8

const (
	// KindTruncated means the buffer ended inside a frame. Retry with more bytes.
	KindTruncated Kind = iota + 1
	// KindInvalid means a complete frame did not match the protocol. Skip it.
	KindInvalid
	// KindFatal means the stream can not be trusted anymore. Close it.
	KindFatal
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindTruncated:
		return "truncated"
	case KindInvalid:
		return "invalid"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel causes wrapped by DecodeError and returned by Encode
var (
	ErrNotArray             = errors.New("codec: frame is not an array")
	ErrUnknownMessageType   = errors.New("codec: unknown message type")
	ErrArity                = errors.New("codec: wrong number of fields")
	ErrFieldType            = errors.New("codec: field has wrong type")
	ErrIDRange              = errors.New("codec: id does not fit into uint32")
	ErrResponseExclusive    = errors.New("codec: response carries both error and result")
	ErrUnknownCode          = errors.New("codec: unknown format code")
	ErrDepthExceeded        = errors.New("codec: nesting too deep")
	ErrMessageTooLarge      = errors.New("codec: message exceeds size limit")
	ErrTooManyInvalidFrames = errors.New("codec: too many consecutive invalid frames")
	ErrTrailingBytes        = errors.New("codec: trailing bytes after message")
	ErrNilErrorValue        = errors.New("codec: error response with nil error value")
	ErrTooLong              = errors.New("codec: length exceeds format limit")
)

// DecodeError is a classified decode failure with its underlying cause
type DecodeError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s frame: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err. Errors that were not classified by this
// package are fatal, nil has no kind (0).
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindFatal
}

// IsFatal reports whether err requires the stream to be closed
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func truncated(err error) error {
	return &DecodeError{Kind: KindTruncated, Err: err}
}

func invalid(err error) error {
	return &DecodeError{Kind: KindInvalid, Err: err}
}

func fatal(err error) error {
	return &DecodeError{Kind: KindFatal, Err: err}
}

func invalidf(cause error, format string, args ...any) error {
	return invalid(fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...)))
}
