package varframe

import (
	"encoding"
	"io"
)

// Marshaler is implemented by values that can re-encode themselves in the
// length-prefixed wire format.
type Marshaler interface {
	encoding.BinaryMarshaler
	io.WriterTo

	// Size returns the encoded size in bytes, prefix included.
	Size() int
	// MarshalTo encodes into p without allocating, returning
	// io.ErrShortBuffer if p is too small.
	MarshalTo(p []byte) (int, error)
}

// Frame is one complete message extracted from the stream.
// The consumer owns it and must call Release when done with the payload.
type Frame struct {
	*Buffer
}

var _ Marshaler = (*Frame)(nil)

// Payload returns the message bytes. It is valid until Release.
func (f *Frame) Payload() []byte { return f.Bytes() }

func (f *Frame) Size() int {
	n := f.Len()
	return VarintLen(uint64(n)) + n
}

func (f *Frame) MarshalBinary() ([]byte, error) {
	return AppendFrame(make([]byte, 0, f.Size()), f.Bytes()), nil
}

func (f *Frame) MarshalTo(p []byte) (int, error) {
	size := f.Size()
	if len(p) < size {
		return 0, io.ErrShortBuffer
	}
	AppendFrame(p[:0], f.Bytes())
	return size, nil
}

func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	var prefix [MaxVarintLen]byte
	payload := f.Bytes()
	hdr := AppendVarint(prefix[:0], uint64(len(payload)))
	n, err := w.Write(hdr)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(payload)
	total := int64(n + m)
	if err != nil {
		return total, err
	}
	if m < len(payload) {
		return total, io.ErrShortWrite
	}
	return total, nil
}
