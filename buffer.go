package varframe

import "sync/atomic"

const (
	bufferLive uint32 = iota
	bufferRetired
)

// Buffer is a single-use ownership token for leased byte storage.
//
// The handle starts live and moves to retired on the first Release. Only that
// transition returns the storage; later calls are no-ops. Every accessor
// checks the state and panics with ErrBufferReleased on a retired handle.
// Each Rent creates a new handle, so a stale handle never refers to storage
// that has since been leased to another owner.
type Buffer struct {
	ptr   *[]byte
	n     int // valid length
	class int // size class shift, -1 when not pooled
	pool  *Pool
	state atomic.Uint32
}

// WrapBuffer returns a live handle over p that is not backed by any pool.
// Releasing it only retires the handle.
func WrapBuffer(p []byte) *Buffer {
	return &Buffer{ptr: &p, n: len(p), class: -1}
}

func (b *Buffer) check() {
	if b.state.Load() != bufferLive {
		panic(ErrBufferReleased)
	}
}

// Bytes returns the valid region of the storage.
func (b *Buffer) Bytes() []byte {
	b.check()
	return (*b.ptr)[:b.n]
}

// Len returns the valid length.
func (b *Buffer) Len() int {
	b.check()
	return b.n
}

// Cap returns the capacity of the leased storage, which is commonly larger
// than the size requested.
func (b *Buffer) Cap() int {
	b.check()
	return len(*b.ptr)
}

// SetLen sets the valid length. It panics with ErrInvalidLength when n is
// outside [0, Cap()].
func (b *Buffer) SetLen(n int) {
	b.check()
	if n < 0 || n > len(*b.ptr) {
		panic(ErrInvalidLength)
	}
	b.n = n
}

// Released reports whether the handle has been retired.
func (b *Buffer) Released() bool { return b.state.Load() != bufferLive }

// Release retires the handle and returns its storage to the pool.
// Only the first call has any effect.
func (b *Buffer) Release() {
	if !b.state.CompareAndSwap(bufferLive, bufferRetired) {
		return
	}
	ptr := b.ptr
	b.ptr = nil
	if b.pool != nil {
		b.pool.put(ptr, b.class)
	}
}
