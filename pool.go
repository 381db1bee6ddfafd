package varframe

import (
	"math/bits"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/exp/constraints"
)

const (
	// MIN_CLASS_SHIFT is the smallest size class, 64 bytes.
	MIN_CLASS_SHIFT = 6

	// MAX_POOLED_SIZE is the default largest size served from a size class.
	// Larger requests are allocated directly and dropped on release.
	MAX_POOLED_SIZE = 16 << 20
)

// DefaultPool is the process-wide pool used when no pool is configured.
var DefaultPool = NewPool()

// Pool is a concurrency-safe cache of byte storage organised in power-of-two
// size classes. Storage is leased through Buffer handles.
type Pool struct {
	// classes maps a class shift to the sync.Pool of *[]byte of that size.
	classes   *xsync.Map[int, *sync.Pool]
	maxPooled int
	metrics   *Metrics

	rented    *xsync.Counter
	released  *xsync.Counter
	allocated *xsync.Counter
}

// PoolStats is a snapshot of pool accounting.
type PoolStats struct {
	Rented    int64 // handles handed out
	Released  int64 // handles retired
	Allocated int64 // storage allocations that missed the cache
	InUse     int64 // Rented - Released
}

type PoolOption func(*Pool)

// WithMaxPooledSize sets the largest request served from a size class.
func WithMaxPooledSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.maxPooled = n
		}
	}
}

// WithPoolMetrics reports rent and release activity to m.
func WithPoolMetrics(m *Metrics) PoolOption {
	return func(p *Pool) { p.metrics = m }
}

// NewPool creates an empty Pool.
func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		classes:   xsync.NewMap[int, *sync.Pool](),
		maxPooled: MAX_POOLED_SIZE,
		rented:    xsync.NewCounter(),
		released:  xsync.NewCounter(),
		allocated: xsync.NewCounter(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// classOf returns the shift of the smallest class holding n bytes.
func classOf[T constraints.Integer](n T) int {
	if n <= 1<<MIN_CLASS_SHIFT {
		return MIN_CLASS_SHIFT
	}
	return bits.Len64(uint64(n - 1))
}

func (p *Pool) class(shift int) *sync.Pool {
	if sp, ok := p.classes.Load(shift); ok {
		return sp
	}
	sp, _ := p.classes.LoadOrStore(shift, &sync.Pool{})
	return sp
}

// Rent leases storage of at least size bytes. The returned handle has
// Len() == size and must be released exactly once by its owner.
func (p *Pool) Rent(size int) *Buffer {
	if size < 0 {
		size = 0
	}
	b := &Buffer{pool: p, n: size, class: -1}
	if size > p.maxPooled {
		s := make([]byte, size)
		b.ptr = &s
		p.allocated.Inc()
	} else {
		b.class = classOf(size)
		if ptr, ok := p.class(b.class).Get().(*[]byte); ok {
			b.ptr = ptr
		} else {
			s := make([]byte, 1<<b.class)
			b.ptr = &s
			p.allocated.Inc()
		}
	}
	p.rented.Inc()
	p.metrics.rent(size)
	return b
}

// put returns storage to its class. Called once per handle by Buffer.Release.
func (p *Pool) put(ptr *[]byte, class int) {
	p.released.Inc()
	p.metrics.release()
	if class < 0 || ptr == nil {
		return
	}
	p.class(class).Put(ptr)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	rented, released := p.rented.Value(), p.released.Value()
	return PoolStats{
		Rented:    rented,
		Released:  released,
		Allocated: p.allocated.Value(),
		InUse:     rented - released,
	}
}
