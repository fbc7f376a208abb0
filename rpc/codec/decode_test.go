package codec

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMessages covers every message variant and every value kind
func testMessages() []common.Message {
	return []common.Message{
		// Basic request
		common.NewRequest(3, "add", common.Int(2), common.Int(2)),

		// Request without params
		common.NewRequest(0, "ping"),

		// Request with the largest id
		common.NewRequest(^uint32(0), "max"),

		// Notification
		common.NewNotification("save", common.String("/tmp/f")),

		// Success response
		common.NewResultResponse(7, common.String("pong")),

		// Void response
		common.NewResultResponse(8, common.Nil{}),

		// Error response
		common.NewErrorResponse(9, common.String("method not found: foo")),

		// Error response with a structured error
		common.NewErrorResponse(10, common.Map{
			{Key: common.String("code"), Value: common.Int(-32601)},
			{Key: common.String("message"), Value: common.String("nope")},
		}),

		// Request with every kind of value
		common.NewRequest(42, "all",
			common.Nil{},
			common.Bool(true),
			common.Bool(false),
			common.Int(-1),
			common.Int(-129),
			common.Int(-1<<63),
			common.Uint(255),
			common.Uint(1<<16),
			common.Uint(^uint64(0)),
			common.Float(1.5),
			common.Float(-0.25),
			common.String(""),
			common.String("héllo"),
			common.Binary{},
			common.Binary{0x00, 0xc1, 0xff},
			common.Array{common.Int(1), common.Array{common.String("nested")}},
			common.Map{
				{Key: common.Int(1), Value: common.Bool(true)},
				{Key: common.Array{}, Value: common.Nil{}},
			},
			common.Extension{Type: -1, Data: []byte{1, 2, 3, 4}},
			common.Extension{Type: 5, Data: []byte{}},
			common.Extension{Type: 6, Data: bytes.Repeat([]byte{7}, 300)},
			common.String(string(bytes.Repeat([]byte("x"), 70000))),
		),
	}
}

func mustEncode(t *testing.T, msg common.Message) []byte {
	t.Helper()
	frame, err := Encode(msg)
	require.NoError(t, err)
	return frame
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// --------------------------------------------------------------------------
// Round Trip
// --------------------------------------------------------------------------

func TestDecodeRoundTrip(t *testing.T) {
	for i, msg := range testMessages() {
		frame := mustEncode(t, msg)

		res, err := Decode(frame)
		require.NoError(t, err, "message %d", i)
		require.False(t, res.NeedMoreData(), "message %d", i)
		assert.True(t, common.MessagesEqual(msg, res.Message), "message %d: got %#v", i, res.Message)
		assert.Equal(t, len(frame), res.Consumed, "message %d", i)
		assert.Zero(t, res.Skipped)
		assert.Zero(t, res.InvalidFrames)

		// strict variant agrees
		got, err := Unmarshal(frame)
		require.NoError(t, err)
		assert.True(t, common.MessagesEqual(msg, got))
	}
}

func TestConcreteRequest(t *testing.T) {
	frame := mustEncode(t, common.NewRequest(3, "add", common.Int(2), common.Int(2)))
	require.Equal(t, mustHex(t, "940003a3616464920202"), frame)
	require.Len(t, frame, 10)

	// one byte
	res, err := Decode(frame[:1])
	require.NoError(t, err)
	assert.True(t, res.NeedMoreData())
	assert.Zero(t, res.Consumed)

	// all but the last byte
	res, err = Decode(frame[:9])
	require.NoError(t, err)
	assert.True(t, res.NeedMoreData())
	assert.Zero(t, res.Consumed)

	// everything
	res, err = Decode(frame)
	require.NoError(t, err)
	require.IsType(t, common.Request{}, res.Message)
	req := res.Message.(common.Request)
	assert.Equal(t, uint32(3), req.ID)
	assert.Equal(t, "add", req.Method)
	assert.True(t, common.Equal(common.Array{common.Int(2), common.Int(2)}, common.Array(req.Params)))
	assert.Equal(t, 10, res.Consumed)
}

func TestConcreteNotification(t *testing.T) {
	msg := common.NewNotification("save", common.String("/tmp/f"))
	res, err := Decode(mustEncode(t, msg))
	require.NoError(t, err)
	assert.True(t, common.MessagesEqual(msg, res.Message))
}

// --------------------------------------------------------------------------
// Incremental Decoding
// --------------------------------------------------------------------------

func TestDecodeEveryPrefixNeedsMoreData(t *testing.T) {
	for i, msg := range testMessages() {
		frame := mustEncode(t, msg)
		orig := bytes.Clone(frame)

		for n := 0; n < len(frame); n++ {
			res, err := Decode(frame[:n])
			require.NoError(t, err, "message %d prefix %d", i, n)
			require.True(t, res.NeedMoreData(), "message %d prefix %d", i, n)
			require.Zero(t, res.Consumed, "message %d prefix %d", i, n)
		}
		assert.Equal(t, orig, frame, "buffer was modified")
	}
}

func TestDecodeEmptyBuffer(t *testing.T) {
	res, err := Decode(nil)
	require.NoError(t, err)
	assert.True(t, res.NeedMoreData())
	assert.Zero(t, res.Consumed)

	res, err = Decode([]byte{})
	require.NoError(t, err)
	assert.True(t, res.NeedMoreData())
}

func TestDecodePipelining(t *testing.T) {
	m1 := common.NewRequest(1, "first", common.String("a"))
	m2 := common.NewNotification("second")
	f1, f2 := mustEncode(t, m1), mustEncode(t, m2)
	buf := append(bytes.Clone(f1), f2...)

	res, err := Decode(buf)
	require.NoError(t, err)
	assert.True(t, common.MessagesEqual(m1, res.Message))
	require.Equal(t, len(f1), res.Consumed)

	res, err = Decode(buf[res.Consumed:])
	require.NoError(t, err)
	assert.True(t, common.MessagesEqual(m2, res.Message))
	assert.Equal(t, len(f2), res.Consumed)
}

// --------------------------------------------------------------------------
// Skip and Resync
// --------------------------------------------------------------------------

func TestDecodeResync(t *testing.T) {
	msg := common.NewRequest(5, "echo", common.Bool(true))
	frame := mustEncode(t, msg)

	tests := []struct {
		name    string
		garbage string
		frames  int
	}{
		{"positive int", "05", 1},
		{"negative int", "ff", 1},
		{"nil", "c0", 1},
		{"string", "a3616263", 1},
		{"map", "81a16101", 1},
		{"unused code", "c1", 1},
		{"empty array", "90", 1},
		{"short array", "920001", 1},
		{"unknown tag", "94050103a0", 1},
		{"negative tag", "94ff0103a0", 1},
		{"request with string id", "9400a131a16d90", 1},
		{"request with int method", "9400010190", 1},
		{"request with non-utf8 method", "940001a2fffe90", 1},
		{"notification with non-utf8 method", "9302a1ff90", 1},
		{"request with map params", "940001a16d80", 1},
		{"request with three fields", "930001a16d", 1},
		{"notification with four fields", "9402a16d9000", 1},
		{"id out of range", "9400cf0000000100000000a16d90", 1},
		{"negative id", "9401ffc0c0", 1},
		{"error and result", "940101a165a172", 1},
		{"log line", hex.EncodeToString([]byte("hello\n")), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			garbage := mustHex(t, tt.garbage)
			buf := append(bytes.Clone(garbage), frame...)

			res, err := Decode(buf)
			require.NoError(t, err)
			require.False(t, res.NeedMoreData())
			assert.True(t, common.MessagesEqual(msg, res.Message))
			assert.Equal(t, len(buf), res.Consumed)
			assert.Equal(t, len(garbage), res.Skipped)
			assert.Equal(t, tt.frames, res.InvalidFrames)
		})
	}
}

func TestDecodeGarbageOnly(t *testing.T) {
	// an array tagged 5 is skipped, not fatal
	garbage := mustHex(t, "94050103a0")

	res, err := Decode(garbage)
	require.NoError(t, err)
	assert.True(t, res.NeedMoreData())
	assert.Equal(t, len(garbage), res.Consumed)
	assert.Equal(t, 1, res.InvalidFrames)
}

func TestDecodeGarbageThenPartialFrame(t *testing.T) {
	frame := mustEncode(t, common.NewRequest(1, "m"))
	buf := append([]byte{0x01, 0x02}, frame[:len(frame)-1]...)

	res, err := Decode(buf)
	require.NoError(t, err)
	assert.True(t, res.NeedMoreData())
	// only the skipped bytes may be trimmed
	assert.Equal(t, 2, res.Consumed)
	assert.Equal(t, 2, res.InvalidFrames)
}

func TestDecodeNonCanonicalIntegers(t *testing.T) {
	want := common.NewRequest(3, "m", common.Int(1), common.Int(-1))

	frames := []string{
		"940003a16d9201ff",
		"9400cc03a16d92cc01d0ff",
		"9400cd0003a16d92cd0001d1ffff",
		"9400ce00000003a16d92d200000001d2ffffffff",
		"9400cf0000000000000003a16d92d30000000000000001d3ffffffffffffffff",
		"94d000d003d9016d92d001d0ff",
	}

	for _, f := range frames {
		msg, err := Unmarshal(mustHex(t, f))
		require.NoError(t, err, f)
		assert.True(t, common.MessagesEqual(want, msg), "%s decoded to %#v", f, msg)
	}
}

func TestDecodeVoidResponse(t *testing.T) {
	msg, err := Unmarshal(mustHex(t, "940107c0c0"))
	require.NoError(t, err)

	resp, ok := msg.(common.Response)
	require.True(t, ok)
	assert.Equal(t, uint32(7), resp.ID)
	assert.False(t, resp.IsError())
	assert.True(t, common.IsNil(resp.Result()))
}

func TestDecodeErrorResponse(t *testing.T) {
	msg, err := Unmarshal(mustHex(t, "940107a165c0"))
	require.NoError(t, err)

	resp := msg.(common.Response)
	assert.True(t, resp.IsError())
	assert.True(t, common.Equal(common.String("e"), resp.Err()))
	assert.True(t, common.IsNil(resp.Result()))
}

func TestDecodeFloat32IsWidened(t *testing.T) {
	msg, err := Unmarshal(mustHex(t, "9302a16d91ca3fc00000"))
	require.NoError(t, err)
	n := msg.(common.Notification)
	assert.True(t, common.Equal(common.Float(1.5), n.Params[0]))
}

// --------------------------------------------------------------------------
// Limits and Fatal Errors
// --------------------------------------------------------------------------

func TestDecodeHugeDeclaredLengthIsFatal(t *testing.T) {
	tests := map[string]string{
		"str32":   "dbffffffff",
		"bin32":   "c6ffffffff",
		"array32": "dd7fffffff",
		"map32":   "df7fffffff",
		"ext32":   "c9ffffffff01",
		"nested":  "9400a16ddbffffffff",
	}

	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(mustHex(t, h))
			require.Error(t, err)
			assert.True(t, IsFatal(err))
			assert.ErrorIs(t, err, ErrMessageTooLarge)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, KindFatal, de.Kind)
		})
	}
}

func TestDecodePendingBytesAboveLimitIsFatal(t *testing.T) {
	dec := NewDecoder(common.CodecConfig{MaxMessageSize: 8, MaxInvalidFrames: 10, MaxDepth: 10})

	// every declared length is below the limit, the frame as a whole is not
	buf := mustHex(t, "940001a568656c6c6f9501010101")

	_, err := dec.Decode(buf)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	// the same prefix below the limit is a plain truncation
	res, err := dec.Decode(buf[:6])
	require.NoError(t, err)
	assert.True(t, res.NeedMoreData())
}

func TestDecodeTooManyInvalidFrames(t *testing.T) {
	dec := NewDecoder(common.CodecConfig{MaxMessageSize: 1024, MaxInvalidFrames: 3, MaxDepth: 10})
	frame := mustEncode(t, common.NewNotification("n"))

	// three frames are tolerated
	res, err := dec.Decode(append([]byte{1, 2, 3}, frame...))
	require.NoError(t, err)
	assert.False(t, res.NeedMoreData())
	assert.Equal(t, 3, res.InvalidFrames)

	// the fourth escalates
	_, err = dec.Decode(append([]byte{1, 2, 3, 4}, frame...))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrTooManyInvalidFrames)

	// 0 disables the limit
	unbounded := NewDecoder(common.CodecConfig{})
	res, err = unbounded.Decode(append(bytes.Repeat([]byte{1}, 5000), frame...))
	require.NoError(t, err)
	assert.Equal(t, 5000, res.InvalidFrames)
}

func TestDecodeDepthLimit(t *testing.T) {
	dec := NewDecoder(common.CodecConfig{MaxMessageSize: 1024, MaxInvalidFrames: 10, MaxDepth: 2})

	// params at depth 1, the inner array at depth 2, its element at depth 3
	_, err := dec.Unmarshal(mustHex(t, "9302a16d919100"))
	require.Error(t, err)
	assert.Equal(t, KindInvalid, KindOf(err))
	assert.ErrorIs(t, err, ErrDepthExceeded)

	msg, err := dec.Unmarshal(mustHex(t, "9302a16d9190"))
	require.NoError(t, err)
	assert.Equal(t, common.MsgTNotification, msg.Type())
}

// --------------------------------------------------------------------------
// Strict Decoding
// --------------------------------------------------------------------------

func TestUnmarshalClassifiesErrors(t *testing.T) {
	frame := mustEncode(t, common.NewRequest(1, "m", common.Int(1)))

	tests := []struct {
		name  string
		buf   []byte
		kind  Kind
		cause error
	}{
		{"empty", nil, KindTruncated, nil},
		{"truncated", frame[:len(frame)-1], KindTruncated, nil},
		{"trailing bytes", append(bytes.Clone(frame), 0x00), KindInvalid, ErrTrailingBytes},
		{"not an array", []byte{0x01}, KindInvalid, ErrNotArray},
		{"unknown tag", mustHex(t, "94050103a0"), KindInvalid, ErrUnknownMessageType},
		{"wrong arity", mustHex(t, "930001a16d"), KindInvalid, ErrArity},
		{"wrong field type", mustHex(t, "9400a131a16d90"), KindInvalid, ErrFieldType},
		{"id range", mustHex(t, "9400cf0000000100000000a16d90"), KindInvalid, ErrIDRange},
		{"both slots", mustHex(t, "940101a165a172"), KindInvalid, ErrResponseExclusive},
		{"unused code", []byte{0xc1}, KindInvalid, ErrUnknownCode},
		{"too large", mustHex(t, "dbffffffff"), KindFatal, ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Unmarshal(tt.buf)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.Equal(t, tt.kind, KindOf(err))
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(nil))
	assert.Equal(t, KindFatal, KindOf(errors.New("foreign")))
	assert.Equal(t, KindInvalid, KindOf(invalid(ErrNotArray)))
	assert.True(t, IsFatal(fatal(ErrMessageTooLarge)))
	assert.False(t, IsFatal(truncated(nil)))

	assert.Equal(t, "truncated", KindTruncated.String())
	assert.Equal(t, "invalid", KindInvalid.String())
	assert.Equal(t, "fatal", KindFatal.String())
	assert.Contains(t, invalid(ErrNotArray).Error(), "invalid frame")
}
