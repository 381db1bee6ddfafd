package varframe

import (
	"bufio"
	"io"
)

// AppendFrame appends payload to dst with its varint length prefix.
func AppendFrame(dst, payload []byte) []byte {
	dst = AppendVarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}

// FrameWriter writes length-prefixed frames to a buffered io.Writer.
// It tracks the first error that occurs; after an error, all subsequent
// writes become no-ops.
type FrameWriter struct {
	w      *bufio.Writer
	count  int64 // total bytes written, prefixes included
	frames int64
	err    error // first error encountered
	prefix [MaxVarintLen]byte
}

// NewFrameWriterSize creates a FrameWriter with a buffer of at least size bytes.
func NewFrameWriterSize(w io.Writer, size int) *FrameWriter {
	if w == nil {
		panic("varframe: NewFrameWriter called with a nil io.Writer")
	}
	return &FrameWriter{w: bufio.NewWriterSize(w, size)}
}

// NewFrameWriter creates a FrameWriter with a default buffer size.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterSize(w, 0)
}

// WriteFrame writes one frame carrying payload. An empty, non-nil payload
// produces a zero-length frame.
func (w *FrameWriter) WriteFrame(payload []byte) {
	if w.err != nil {
		return
	}
	if payload == nil {
		w.setError(ErrEmptyPayload)
		return
	}
	hdr := AppendVarint(w.prefix[:0], uint64(len(payload)))
	if !w.write(hdr) {
		return
	}
	if w.write(payload) {
		w.frames++
	}
}

// WriteFrom writes a value that already encodes itself as a frame.
func (w *FrameWriter) WriteFrom(m Marshaler) {
	if m == nil || w.err != nil {
		return
	}
	n, err := m.WriteTo(w.w)
	w.count += n
	w.setError(err)
	if err == nil {
		w.frames++
	}
}

func (w *FrameWriter) write(p []byte) bool {
	n, err := w.w.Write(p)
	w.count += int64(n)
	w.setError(err)
	return err == nil
}

// setError records the first non-nil error.
// This preserves the root cause of a failure chain instead of a later,
// less relevant error.
func (w *FrameWriter) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Flush writes any buffered data to the underlying io.Writer.
func (w *FrameWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.setError(w.w.Flush())
	return w.err
}

// Result flushes the buffer and returns the final count and error state.
func (w *FrameWriter) Result() (int64, error) {
	w.Flush()
	return w.count, w.err
}

func (w *FrameWriter) Count() int64  { return w.count }
func (w *FrameWriter) Frames() int64 { return w.frames }
func (w *FrameWriter) Err() error    { return w.err }
