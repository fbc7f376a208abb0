package codec

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
	"io"
	"math"
)

// --------------------------------------------------------------------------
// Value Writer
// --------------------------------------------------------------------------

// valueWriter writes values in their canonical msgpack form.
// The first error is sticky, all later writes are no-ops.
type valueWriter struct {
	buf      *bytes.Buffer
	enc      *msgpack.Encoder
	maxDepth int // 0 means unbounded
	err      error
}

func newValueWriter(buf *bytes.Buffer, maxDepth int) *valueWriter {
	// bytes.Buffer is a io.ByteWriter, so the encoder writes through without buffering
	return &valueWriter{buf: buf, enc: msgpack.NewEncoder(buf), maxDepth: maxDepth}
}

// deep records ErrDepthExceeded if a value at depth may not be written
func (w *valueWriter) deep(depth int) bool {
	if w.err != nil {
		return true
	}
	if w.maxDepth > 0 && depth > w.maxDepth {
		w.err = fmt.Errorf("%w: depth %d, limit %d", ErrDepthExceeded, depth, w.maxDepth)
		return true
	}
	return false
}

func (w *valueWriter) check(n int) bool {
	if w.err != nil {
		return false
	}
	if uint64(n) > math.MaxUint32 {
		w.err = fmt.Errorf("%w: %d", ErrTooLong, n)
		return false
	}
	return true
}

func (w *valueWriter) arrayLen(n int) {
	if w.check(n) {
		w.err = w.enc.EncodeArrayLen(n)
	}
}

func (w *valueWriter) uint(n uint64) {
	if w.err == nil {
		w.err = w.enc.EncodeUint(n)
	}
}

func (w *valueWriter) string(s string) {
	if w.check(len(s)) {
		w.err = w.enc.EncodeString(s)
	}
}

// values writes vs as an array at depth, its elements one level deeper
func (w *valueWriter) values(vs []common.Value, depth int) {
	if w.deep(depth) {
		return
	}
	w.arrayLen(len(vs))
	for _, v := range vs {
		w.value(v, depth+1)
	}
}

func (w *valueWriter) value(v common.Value, depth int) {
	if w.deep(depth) {
		return
	}

	switch x := v.(type) {
	case nil, common.Nil:
		w.err = w.enc.EncodeNil()
	case common.Bool:
		w.err = w.enc.EncodeBool(bool(x))
	case common.Integer:
		// EncodeInt/EncodeUint pick the smallest width
		if x.IsNegative() {
			n, _ := x.Int64()
			w.err = w.enc.EncodeInt(n)
		} else {
			n, _ := x.Uint64()
			w.err = w.enc.EncodeUint(n)
		}
	case common.Float:
		w.err = w.enc.EncodeFloat64(float64(x))
	case common.String:
		w.string(string(x))
	case common.Binary:
		if w.check(len(x)) {
			if x == nil {
				// a nil slice would be written as msgpack nil
				x = common.Binary{}
			}
			w.err = w.enc.EncodeBytes(x)
		}
	case common.Array:
		w.values(x, depth)
	case common.Map:
		if w.check(len(x)) {
			w.err = w.enc.EncodeMapLen(len(x))
		}
		for _, p := range x {
			w.value(p.Key, depth+1)
			w.value(p.Value, depth+1)
		}
	case common.Extension:
		if w.check(len(x.Data)) {
			w.err = w.enc.EncodeExtHeader(x.Type, len(x.Data))
		}
		if w.err == nil {
			_, w.err = w.buf.Write(x.Data)
		}
	default:
		w.err = fmt.Errorf("codec: unsupported value type %T", v)
	}
}

// --------------------------------------------------------------------------
// Value Reader
// --------------------------------------------------------------------------

// valueReader reads values from a borrowed byte slice. The bytes.Reader is the
// cursor: the msgpack decoder reads from it directly, so the consumed byte
// count is always exact.
type valueReader struct {
	r      *bytes.Reader
	dec    *msgpack.Decoder
	config common.CodecConfig
}

func newValueReader(buf []byte, config common.CodecConfig) *valueReader {
	r := bytes.NewReader(buf)
	return &valueReader{r: r, dec: msgpack.NewDecoder(r), config: config}
}

// offset returns the number of bytes consumed so far
func (vr *valueReader) offset() int {
	return int(vr.r.Size()) - vr.r.Len()
}

// fail classifies an error returned by the msgpack decoder.
// Running out of bytes is a truncation, everything else is a malformed value.
func (vr *valueReader) fail(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return truncated(err)
	}
	return invalid(err)
}

// need checks a declared length against the size limit and the bytes left in the buffer
func (vr *valueReader) need(n int) error {
	if n < 0 {
		return invalid(fmt.Errorf("%w: negative length %d", ErrFieldType, n))
	}
	if vr.config.MaxMessageSize > 0 && n > vr.config.MaxMessageSize {
		return fatal(fmt.Errorf("%w: declared length %d, limit %d", ErrMessageTooLarge, n, vr.config.MaxMessageSize))
	}
	if n > vr.r.Len() {
		return truncated(io.ErrUnexpectedEOF)
	}
	return nil
}

// readValue reads one complete value at the cursor
func (vr *valueReader) readValue(depth int) (common.Value, error) {
	if vr.config.MaxDepth > 0 && depth > vr.config.MaxDepth {
		return nil, invalid(ErrDepthExceeded)
	}

	c, err := vr.dec.PeekCode()
	if err != nil {
		return nil, vr.fail(err)
	}

	switch {
	case c == msgpcode.Nil:
		if err := vr.dec.DecodeNil(); err != nil {
			return nil, vr.fail(err)
		}
		return common.Nil{}, nil

	case c == msgpcode.False || c == msgpcode.True:
		b, err := vr.dec.DecodeBool()
		if err != nil {
			return nil, vr.fail(err)
		}
		return common.Bool(b), nil

	case c <= msgpcode.PosFixedNumHigh, c == msgpcode.Uint8, c == msgpcode.Uint16,
		c == msgpcode.Uint32, c == msgpcode.Uint64:
		n, err := vr.dec.DecodeUint64()
		if err != nil {
			return nil, vr.fail(err)
		}
		return common.Uint(n), nil

	case c >= msgpcode.NegFixedNumLow, c == msgpcode.Int8, c == msgpcode.Int16,
		c == msgpcode.Int32, c == msgpcode.Int64:
		n, err := vr.dec.DecodeInt64()
		if err != nil {
			return nil, vr.fail(err)
		}
		return common.Int(n), nil

	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := vr.dec.DecodeFloat64()
		if err != nil {
			return nil, vr.fail(err)
		}
		return common.Float(f), nil

	case msgpcode.IsString(c):
		b, err := vr.readBytes()
		if err != nil {
			return nil, err
		}
		return common.String(b), nil

	case msgpcode.IsBin(c):
		b, err := vr.readBytes()
		if err != nil {
			return nil, err
		}
		return common.Binary(b), nil

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := vr.dec.DecodeArrayLen()
		if err != nil {
			return nil, vr.fail(err)
		}
		// every element takes at least one byte
		if err := vr.need(n); err != nil {
			return nil, err
		}
		arr := make(common.Array, n)
		for i := range arr {
			if arr[i], err = vr.readValue(depth + 1); err != nil {
				return nil, err
			}
		}
		return arr, nil

	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := vr.dec.DecodeMapLen()
		if err != nil {
			return nil, vr.fail(err)
		}
		if err := vr.need(2 * n); err != nil {
			return nil, err
		}
		m := make(common.Map, n)
		for i := range m {
			if m[i].Key, err = vr.readValue(depth + 1); err != nil {
				return nil, err
			}
			if m[i].Value, err = vr.readValue(depth + 1); err != nil {
				return nil, err
			}
		}
		return m, nil

	case msgpcode.IsFixedExt(c) || msgpcode.IsExt(c):
		extType, n, err := vr.dec.DecodeExtHeader()
		if err != nil {
			return nil, vr.fail(err)
		}
		data, err := vr.readRaw(n)
		if err != nil {
			return nil, err
		}
		return common.Extension{Type: extType, Data: data}, nil

	default:
		// 0xc1 is never used by the format
		return nil, invalidf(ErrUnknownCode, "0x%02x", c)
	}
}

// readBytes reads a str or bin payload
func (vr *valueReader) readBytes() ([]byte, error) {
	n, err := vr.dec.DecodeBytesLen()
	if err != nil {
		return nil, vr.fail(err)
	}
	return vr.readRaw(n)
}

// readRaw copies n raw bytes from the cursor
func (vr *valueReader) readRaw(n int) ([]byte, error) {
	if err := vr.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(vr.r, b); err != nil {
		return nil, vr.fail(err)
	}
	return b, nil
}
