package codec

import (
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"unicode/utf8"
)

var Logger = logger.GetLogger("codec")

// defaultDecoder backs the package level Decode and Unmarshal functions
var defaultDecoder = NewDecoder(common.DefaultCodecConfig())

// --------------------------------------------------------------------------
// Decode Result
// --------------------------------------------------------------------------

// Result is the outcome of a non-fatal Decode call
type Result struct {
	// Message is the decoded message, nil if more data is needed
	Message common.Message
	// Consumed is the number of bytes the caller must drop from the front of its buffer.
	// It includes skipped invalid frames and may be > 0 even if Message is nil.
	Consumed int
	// Skipped is the number of bytes discarded as invalid frames
	Skipped int
	// InvalidFrames is the number of invalid frames discarded
	InvalidFrames int
}

// NeedMoreData reports whether the buffer held no complete message
func (r Result) NeedMoreData() bool {
	return r.Message == nil
}

// --------------------------------------------------------------------------
// Decoder
// --------------------------------------------------------------------------

// Decoder extracts messages from a caller owned byte buffer.
// It holds no per-stream state and is safe for concurrent use.
type Decoder struct {
	config common.CodecConfig
}

// NewDecoder creates a new decoder with the given limits
func NewDecoder(config common.CodecConfig) *Decoder {
	return &Decoder{config: config}
}

// Decode decodes the message at the front of the buffer with the default limits
func Decode(buf []byte) (Result, error) {
	return defaultDecoder.Decode(buf)
}

// Unmarshal decodes a buffer holding exactly one message with the default limits
func Unmarshal(buf []byte) (common.Message, error) {
	return defaultDecoder.Unmarshal(buf)
}

// Decode tries to extract one message from the front of buf. buf is never modified.
//
// Outcomes:
//   - message decoded: Result.Message is set, Result.Consumed covers it and
//     every invalid frame skipped before it
//   - need more data: Result.Message is nil, the error is nil and
//     Result.Consumed only covers skipped invalid frames (0 for a plain partial frame)
//   - fatal: the error is a *DecodeError of KindFatal, the stream must be closed
//
// Invalid frames are skipped and decoding resumes right after them, they are
// never returned to the caller unless the configured limit of consecutive
// invalid frames is exceeded, which is fatal.
func (d *Decoder) Decode(buf []byte) (Result, error) {
	res, _, err := d.decode(buf, 0)
	return res, err
}

// Unmarshal decodes buf as exactly one message. Invalid frames are not skipped.
// Every failure is returned as *DecodeError so the caller can inspect its Kind.
func (d *Decoder) Unmarshal(buf []byte) (common.Message, error) {
	msg, n, err := d.decodeFrame(buf)
	if err != nil {
		return nil, err
	}
	if n != len(buf) {
		return nil, invalid(fmt.Errorf("%w: %d bytes", ErrTrailingBytes, len(buf)-n))
	}
	return msg, nil
}

// decode runs the skip-and-resync loop. streak is the number of consecutive
// invalid frames seen before this call; the updated streak is returned.
// Nothing is committed to the caller before a terminal outcome is reached.
func (d *Decoder) decode(buf []byte, streak int) (Result, int, error) {
	var res Result
	off := 0

	for {
		// Case buffer exhausted (possibly by skipping) -> need more data
		if off == len(buf) {
			res.Consumed = off
			return res, streak, nil
		}

		msg, n, err := d.decodeFrame(buf[off:])

		switch KindOf(err) {
		case 0:
			res.Message = msg
			res.Consumed = off + n
			return res, 0, nil

		case KindTruncated:
			pending := len(buf) - off
			if d.config.MaxMessageSize > 0 && pending > d.config.MaxMessageSize {
				res.Consumed = off
				return res, streak, fatal(fmt.Errorf("%w: %d bytes pending", ErrMessageTooLarge, pending))
			}
			res.Consumed = off
			return res, streak, nil

		case KindInvalid:
			// always make progress, the offending byte may have been peeked only
			if n < 1 {
				n = 1
			}
			off += n
			res.Skipped += n
			res.InvalidFrames++
			streak++
			Logger.Debugf("skipped %d bytes of invalid frame: %v", n, err)

			if d.config.MaxInvalidFrames > 0 && streak > d.config.MaxInvalidFrames {
				res.Consumed = off
				return res, streak, fatal(fmt.Errorf("%w: %d in a row", ErrTooManyInvalidFrames, streak))
			}

		default:
			res.Consumed = off
			return res, streak, err
		}
	}
}

// decodeFrame reads one value from the front of buf and maps it to a message.
// The returned length is the number of bytes read, also on invalid frames.
func (d *Decoder) decodeFrame(buf []byte) (common.Message, int, error) {
	vr := newValueReader(buf, d.config)

	v, err := vr.readValue(0)
	if err != nil {
		return nil, vr.offset(), err
	}

	msg, err := toMessage(v)
	return msg, vr.offset(), err
}

// --------------------------------------------------------------------------
// Protocol Shape
// --------------------------------------------------------------------------

// toMessage validates the outer shape of a fully read value
func toMessage(v common.Value) (common.Message, error) {
	arr, ok := v.(common.Array)
	if !ok {
		return nil, invalidf(ErrNotArray, "got %s", v.Kind())
	}
	if len(arr) < 3 {
		return nil, invalidf(ErrArity, "%d fields", len(arr))
	}

	tag, ok := arr[0].(common.Integer)
	if !ok {
		return nil, invalidf(ErrFieldType, "type tag is %s", arr[0].Kind())
	}
	t, ok := tag.Uint64()
	if !ok || t > uint64(common.MsgTNotification) {
		return nil, invalidf(ErrUnknownMessageType, "%s", tag)
	}

	switch common.MessageType(t) {
	case common.MsgTRequest:
		if len(arr) != 4 {
			return nil, invalidf(ErrArity, "request with %d fields", len(arr))
		}
		id, err := toID(arr[1])
		if err != nil {
			return nil, err
		}
		method, err := toMethod(arr[2])
		if err != nil {
			return nil, err
		}
		params, err := toParams(arr[3])
		if err != nil {
			return nil, err
		}
		return common.Request{ID: id, Method: method, Params: params}, nil

	case common.MsgTResponse:
		if len(arr) != 4 {
			return nil, invalidf(ErrArity, "response with %d fields", len(arr))
		}
		id, err := toID(arr[1])
		if err != nil {
			return nil, err
		}
		errValue, result := arr[2], arr[3]
		if common.IsNil(errValue) {
			// [1, id, nil, nil] is a successful call without result
			return common.NewResultResponse(id, result), nil
		}
		if !common.IsNil(result) {
			return nil, invalid(ErrResponseExclusive)
		}
		return common.NewErrorResponse(id, errValue), nil

	case common.MsgTNotification:
		if len(arr) != 3 {
			return nil, invalidf(ErrArity, "notification with %d fields", len(arr))
		}
		method, err := toMethod(arr[1])
		if err != nil {
			return nil, err
		}
		params, err := toParams(arr[2])
		if err != nil {
			return nil, err
		}
		return common.Notification{Method: method, Params: params}, nil

	default:
		return nil, invalidf(ErrUnknownMessageType, "%d", t)
	}
}

func toID(v common.Value) (uint32, error) {
	i, ok := v.(common.Integer)
	if !ok {
		return 0, invalidf(ErrFieldType, "id is %s", v.Kind())
	}
	u, ok := i.Uint64()
	if !ok || u > uint64(^uint32(0)) {
		return 0, invalidf(ErrIDRange, "%s", i)
	}
	return uint32(u), nil
}

func toMethod(v common.Value) (string, error) {
	s, ok := v.(common.String)
	if !ok {
		return "", invalidf(ErrFieldType, "method is %s", v.Kind())
	}
	if !utf8.ValidString(string(s)) {
		return "", invalidf(ErrFieldType, "method is not utf-8")
	}
	return string(s), nil
}

func toParams(v common.Value) ([]common.Value, error) {
	a, ok := v.(common.Array)
	if !ok {
		return nil, invalidf(ErrFieldType, "params is %s", v.Kind())
	}
	return []common.Value(a), nil
}
