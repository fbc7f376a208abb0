package codec

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"io"
)

// DefaultChunkSize is the minimum number of bytes a StreamDecoder requests per Read.
//
// A pending frame is parsed again from its first byte after every Read that
// delivered data. While a frame is pending the buffer doubles, so readers
// that fill it cost O(n log n) for an n byte frame. Readers that return a few
// bytes at a time (small TCP segments) cost up to O(n^2) for frames made of
// many small elements.
const DefaultChunkSize = 4096

// maxEmptyReads is the number of consecutive (0, nil) reads before a
// StreamDecoder gives up with io.ErrNoProgress
const maxEmptyReads = 100

// StreamStats are the running totals of a StreamDecoder
type StreamStats struct {
	Messages      int
	BytesRead     int
	Skipped       int
	InvalidFrames int
}

// StreamDecoder reads messages from an io.Reader. It owns the pending bytes
// between reads and tracks consecutive invalid frames across reads.
// A StreamDecoder is not safe for concurrent use.
type StreamDecoder struct {
	r         io.Reader
	dec       *Decoder
	data      []byte
	start     int
	end       int
	chunkSize int
	streak    int
	err       error
	stats     StreamStats
	observer  func(Result)
}

// NewStreamDecoder creates a new stream decoder reading from r
func NewStreamDecoder(r io.Reader, config common.CodecConfig) *StreamDecoder {
	return &StreamDecoder{
		r:         r,
		dec:       NewDecoder(config),
		chunkSize: DefaultChunkSize,
	}
}

// SetChunkSize sets the minimum number of bytes requested per Read
func (s *StreamDecoder) SetChunkSize(n int) {
	if n > 0 {
		s.chunkSize = n
	}
}

// SetObserver registers a function called with every decode result that
// consumed bytes, e.g. to feed metrics
func (s *StreamDecoder) SetObserver(fn func(Result)) {
	s.observer = fn
}

// Stats returns the running totals
func (s *StreamDecoder) Stats() StreamStats {
	return s.stats
}

// Buffered returns the number of bytes read but not decoded yet
func (s *StreamDecoder) Buffered() int {
	return s.end - s.start
}

// Next returns the next message of the stream. Invalid frames are skipped.
//
// It returns io.EOF if the reader ended cleanly between two messages. Every other
// error is fatal (see IsFatal) and all errors are sticky: a read error, a stream ending inside a frame
// (wrapping io.ErrUnexpectedEOF) or a *DecodeError of KindFatal.
func (s *StreamDecoder) Next() (common.Message, error) {
	if s.err != nil {
		return nil, s.err
	}

	for {
		if s.end > s.start {
			res, streak, err := s.dec.decode(s.data[s.start:s.end], s.streak)
			s.streak = streak
			s.start += res.Consumed
			s.observe(res)

			if err != nil {
				s.err = err
				return nil, err
			}
			if res.Message != nil {
				s.stats.Messages++
				return res.Message, nil
			}
		}

		if err := s.fill(); err != nil {
			if errors.Is(err, io.EOF) {
				if s.end == s.start {
					s.err = io.EOF
				} else {
					s.err = fatal(fmt.Errorf("stream ended inside a frame (%d bytes pending): %w", s.end-s.start, io.ErrUnexpectedEOF))
				}
			} else {
				s.err = fatal(err)
			}
			return nil, s.err
		}
	}
}

func (s *StreamDecoder) observe(res Result) {
	s.stats.Skipped += res.Skipped
	s.stats.InvalidFrames += res.InvalidFrames
	if s.observer != nil && res.Consumed > 0 {
		s.observer(res)
	}
}

// fill reads at least one byte into the buffer. Decoded bytes are dropped
// from the front first, the buffer grows only if a single frame needs it.
func (s *StreamDecoder) fill() error {
	if s.start > 0 {
		n := copy(s.data, s.data[s.start:s.end])
		s.start, s.end = 0, n
	}

	if len(s.data)-s.end < s.chunkSize {
		grown := make([]byte, max(2*len(s.data), s.end+s.chunkSize))
		copy(grown, s.data[:s.end])
		s.data = grown
	}

	for i := 0; i < maxEmptyReads; i++ {
		n, err := s.r.Read(s.data[s.end:])
		s.end += n
		s.stats.BytesRead += n
		if n > 0 {
			// data first, the error is reported by the next read
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}
