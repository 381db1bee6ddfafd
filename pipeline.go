package varframe

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/rs/zerolog"
)

// DEFAULT_CAPACITY is the default per-frame capacity. Frames declaring a
// larger payload fail with ErrMessageTooLarge.
const DEFAULT_CAPACITY = 1024

// Pipeline drives a Source through an Accumulator and produces frames in
// stream order.
//
// A Pipeline belongs to a single goroutine. Once it has ended, with io.EOF or
// an error, every later Next returns the same result; a new stream needs a
// new Pipeline.
type Pipeline struct {
	src      Source
	acc      *Accumulator
	pool     *Pool
	capacity int
	logger   zerolog.Logger
	metrics  *Metrics

	spare  *Buffer // rented destination not yet handed out
	srcErr error   // returned by the source, reported once buffered frames are drained
	err    error   // terminal state, io.EOF on clean end
	closed bool
	frames int64
}

type Option func(*Pipeline)

// WithCapacity sets the largest payload a single frame may declare.
func WithCapacity(n int) Option {
	return func(p *Pipeline) { p.capacity = n }
}

// WithPool sets the pool destination buffers are rented from.
func WithPool(pool *Pool) Option {
	return func(p *Pipeline) {
		if pool != nil {
			p.pool = pool
		}
	}
}

// WithLogger sets the logger for stream events. The default discards them.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics sets the collectors updated per chunk, frame and failure.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a Pipeline reading from src.
func NewPipeline(src Source, opts ...Option) (*Pipeline, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	p := &Pipeline{
		src:      src,
		pool:     DefaultPool,
		capacity: DEFAULT_CAPACITY,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	p.acc = NewAccumulator(p.capacity)
	return p, nil
}

// Next returns the next frame. It returns io.EOF after the last frame of a
// cleanly ended stream. ErrMalformedVarint, ErrMessageTooLarge, context
// errors and transport errors from the Source end the pipeline and are
// returned as is.
func (p *Pipeline) Next(ctx context.Context) (*Frame, error) {
	if p.err != nil {
		return nil, p.err
	}
	for {
		f, err := p.extract()
		if err != nil {
			return nil, p.fail(err)
		}
		if f != nil {
			return f, nil
		}

		if p.srcErr == io.EOF {
			return nil, p.finish()
		}
		if p.srcErr != nil {
			return nil, p.fail(p.srcErr)
		}
		if err := ctx.Err(); err != nil {
			return nil, p.fail(err)
		}
		chunk, err := p.src.Next(ctx)
		if chunk != nil {
			p.append(chunk)
		}
		if err != nil {
			p.srcErr = err
		}
	}
}

// append copies a chunk into the accumulator and releases it.
func (p *Pipeline) append(chunk *Buffer) {
	n := chunk.Len()
	p.acc.Append(chunk.Bytes())
	chunk.Release()
	p.metrics.chunk(n)
	p.logger.Trace().Int("bytes", n).Int("buffered", p.acc.Buffered()).Msg("chunk appended")
}

// extract takes one frame off the accumulator. It returns nil, nil when more
// input is needed.
func (p *Pipeline) extract() (*Frame, error) {
	if p.acc.Buffered() == 0 {
		return nil, nil
	}
	if p.spare == nil {
		p.spare = p.pool.Rent(p.capacity)
	}
	size, ok, err := p.acc.TryExtract(p.spare.Bytes())
	if err != nil || !ok {
		return nil, err
	}
	dst := p.spare
	p.spare = nil
	dst.SetLen(size)
	p.frames++
	p.metrics.frame(size)
	p.logger.Debug().Int("size", size).Int64("frame", p.frames).Msg("frame extracted")
	return &Frame{Buffer: dst}, nil
}

func (p *Pipeline) releaseSpare() {
	if p.spare != nil {
		p.spare.Release()
		p.spare = nil
	}
}

func (p *Pipeline) finish() error {
	p.err = io.EOF
	p.releaseSpare()
	if n := p.acc.Buffered(); n > 0 {
		p.logger.Warn().Int("bytes", n).Msg("stream ended inside a frame")
	} else {
		p.logger.Debug().Int64("frames", p.frames).Msg("stream ended")
	}
	return p.err
}

func (p *Pipeline) fail(err error) error {
	p.err = err
	p.releaseSpare()
	kind := errorKind(err)
	p.metrics.failure(kind)
	p.logger.Error().Err(err).Str("kind", kind).Int("buffered", p.acc.Buffered()).Msg("pipeline stopped")
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedVarint):
		return "malformed_varint"
	case errors.Is(err, ErrMessageTooLarge):
		return "message_too_large"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}

// All returns an iterator over the remaining frames. A terminal error is
// yielded once as the last element; a clean end yields nothing more.
// Stopping the range early leaves the pipeline usable.
func (p *Pipeline) All(ctx context.Context) iter.Seq2[*Frame, error] {
	return func(yield func(*Frame, error) bool) {
		for {
			f, err := p.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

// Buffered returns the number of received bytes not yet part of a frame.
func (p *Pipeline) Buffered() int { return p.acc.Buffered() }

// Frames returns the number of frames handed out so far.
func (p *Pipeline) Frames() int64 { return p.frames }

// Err returns the error that ended the pipeline, or nil while it is running
// or after a clean end.
func (p *Pipeline) Err() error {
	if p.err == io.EOF {
		return nil
	}
	return p.err
}

// Close releases the buffer held for the next frame and closes the source
// if it implements io.Closer. Later calls to Next return ErrPipelineClosed.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.err = ErrPipelineClosed
	p.releaseSpare()
	if c, ok := p.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// First returns the first frame of the stream, or ErrNoFrames if it ends
// cleanly before one arrives.
func First(ctx context.Context, p *Pipeline) (*Frame, error) {
	f, err := p.Next(ctx)
	if err == io.EOF {
		return nil, ErrNoFrames
	}
	return f, err
}
