package varframe

import (
	"context"
	"errors"
	"io"
)

// CHUNK_SIZE is the default read size of a ReaderSource. 32KB is a common
// default size used by io.Copy.
const CHUNK_SIZE = 32 * 1024

// maxConsecutiveEmptyReads matches the bufio limit for readers that keep
// returning 0, nil.
const maxConsecutiveEmptyReads = 100

// ErrInvalidRead indicates that an io.Reader returned an invalid (negative or outbound) count from Read.
var ErrInvalidRead = errors.New("varframe: reader returned invalid count from Read")

// Source yields raw chunks of a stream in arrival order.
//
// Next blocks until a chunk is available. It returns io.EOF at the clean end
// of the stream; any other error is a transport failure. A chunk returned
// together with an error is consumed before the error takes effect. Ownership
// of a returned chunk passes to the caller, who releases it.
type Source interface {
	Next(ctx context.Context) (*Buffer, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Buffer, error)

func (f SourceFunc) Next(ctx context.Context) (*Buffer, error) { return f(ctx) }

// ReaderSource reads an io.Reader into pooled chunks.
// It tracks the first error; once set, every Next returns it.
type ReaderSource struct {
	r     io.Reader
	pool  *Pool
	size  int
	count int64 // total bytes read
	err   error // first error encountered
}

var _ Source = (*ReaderSource)(nil)

type SourceOption func(*ReaderSource)

// WithChunkSize sets the size of each read.
func WithChunkSize(n int) SourceOption {
	return func(s *ReaderSource) { s.size = n }
}

// WithSourcePool sets the pool chunks are rented from.
func WithSourcePool(p *Pool) SourceOption {
	return func(s *ReaderSource) {
		if p != nil {
			s.pool = p
		}
	}
}

// NewReaderSource creates a ReaderSource over r.
func NewReaderSource(r io.Reader, opts ...SourceOption) (*ReaderSource, error) {
	if r == nil {
		return nil, ErrNilSource
	}
	s := &ReaderSource{r: r, pool: DefaultPool, size: CHUNK_SIZE}
	for _, opt := range opts {
		opt(s)
	}
	if s.size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	return s, nil
}

// Next reads the next chunk. Bytes delivered together with an error are
// returned first; the error follows on the next call.
func (s *ReaderSource) Next(ctx context.Context) (*Buffer, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := s.pool.Rent(s.size)
	for range maxConsecutiveEmptyReads {
		n, err := s.r.Read(buf.Bytes())
		if n < 0 || n > buf.Len() {
			buf.Release()
			s.setError(ErrInvalidRead)
			return nil, s.err
		}
		s.count += int64(n)
		s.setError(err)
		if n > 0 {
			buf.SetLen(n)
			return buf, nil
		}
		if s.err != nil {
			buf.Release()
			return nil, s.err
		}
	}
	buf.Release()
	s.setError(io.ErrNoProgress)
	return nil, s.err
}

// setError records the first non-nil error.
func (s *ReaderSource) setError(err error) {
	if s.err == nil && err != nil {
		s.err = err
	}
}

func (s *ReaderSource) Count() int64 { return s.count }
func (s *ReaderSource) Err() error   { return s.err }

// Close closes the underlying reader if it implements io.Closer.
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SliceSource replays a fixed list of chunks and then reports io.EOF.
type SliceSource struct {
	chunks [][]byte
	i      int
}

// NewSliceSource returns a Source over chunks. The slices are not copied.
func NewSliceSource(chunks ...[]byte) *SliceSource {
	return &SliceSource{chunks: chunks}
}

func (s *SliceSource) Next(ctx context.Context) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.i >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.i]
	s.i++
	return WrapBuffer(chunk), nil
}
