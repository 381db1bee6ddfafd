package varframe

import "fmt"

// Accumulator holds bytes received from a stream but not yet parsed into frames.
//
// Bytes are consumed strictly in arrival order. Consumption only advances a read
// cursor; the unread region is moved to the front lazily, when Append needs
// room, so draining frames costs no copying of the remainder.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	buf []byte // buf[r:] holds the unread bytes
	r   int
}

// NewAccumulator returns an Accumulator with an initial capacity of size bytes.
func NewAccumulator(size int) *Accumulator {
	if size < 0 {
		size = 0
	}
	return &Accumulator{buf: make([]byte, 0, size)}
}

// Append copies p onto the tail. It never parses.
func (a *Accumulator) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	if a.r > 0 && cap(a.buf)-len(a.buf) < len(p) {
		a.compact()
	}
	a.buf = append(a.buf, p...)
}

// Buffered returns the number of unread bytes.
func (a *Accumulator) Buffered() int { return len(a.buf) - a.r }

// Reset discards all unread bytes but keeps the allocated storage.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
	a.r = 0
}

// compact moves the unread region to the front of buf.
func (a *Accumulator) compact() {
	n := copy(a.buf, a.buf[a.r:])
	a.buf = a.buf[:n]
	a.r = 0
}

// advance consumes n bytes from the head.
func (a *Accumulator) advance(n int) {
	a.r += n
	if a.r == len(a.buf) {
		a.buf = a.buf[:0]
		a.r = 0
	}
}

// TryExtract attempts to take one length-prefixed frame off the head and copy
// its payload into dst. The capacity for a single frame is len(dst).
//
// Results:
//   - ok == false, err == nil: the prefix or the payload is still incomplete.
//     Nothing was consumed.
//   - ok == true: size bytes were copied into dst[:size] and the frame was consumed.
//   - err wraps ErrMessageTooLarge: the prefix declares more than len(dst)
//     bytes. This is reported as soon as the prefix is decoded, whether or not
//     the payload has arrived. Nothing was consumed.
//   - err is ErrMalformedVarint: the stream is corrupted. Nothing was consumed.
//
// Calling TryExtract in a loop drains every complete frame currently buffered.
func (a *Accumulator) TryExtract(dst []byte) (size int, ok bool, err error) {
	unread := a.buf[a.r:]
	v, n, err := DecodeVarint(unread)
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	if uint64(v) > uint64(len(dst)) {
		return 0, false, fmt.Errorf("%w: declared %d bytes, capacity %d", ErrMessageTooLarge, v, len(dst))
	}
	size = int(v)
	if len(unread)-n < size {
		return 0, false, nil
	}
	copy(dst, unread[n:n+size])
	a.advance(n + size)
	return size, true, nil
}
