// Package pool provides object pooling for colgen's hot paths.
// Column generation allocates and discards large batches of candidate
// columns every pricing round; pooling their backing storage keeps
// garbage collection pressure flat across a long solve.
//
// The package provides:
//   - Generic type-safe object pooling with Pool[T]
//   - A pre-configured global pool for coefficient vectors
//   - Allocation and hit/miss statistics for monitoring
//
// Example usage:
//
//	coeffs := pool.GetFloatSlice(nRows)
//	defer pool.PutFloatSlice(coeffs)
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and automatic reset
// functionality. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
		misses    int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The new function is called when the pool is empty and a new object is
// needed. The reset function is called before returning an object to the
// pool, allowing for efficient cleanup and reuse.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   new,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		atomic.AddInt64(&p.stats.misses, 1)
		return new()
	}
	return p
}

// Get retrieves an object from the pool. If the pool is empty, it creates
// a new object using the factory function provided in New.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse. If a reset function was
// provided during pool creation, it is called before pooling.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics including allocation count,
// objects currently in use, cache hits, and cache misses.
func (p *Pool[T]) Stats() (allocated, inUse, hits, misses int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits),
		atomic.LoadInt64(&p.stats.misses)
}

// defaultVectorCap sizes fresh coefficient buffers; master problems with
// more rows fall back to direct allocation in GetFloatSlice.
const defaultVectorCap = 256

// FloatSlicePool provides pooling for coefficient vectors.
// Slices are cleared on return so a recycled buffer never leaks one
// column's coefficients into the next.
var FloatSlicePool = New(
	func() []float64 {
		return make([]float64, 0, defaultVectorCap)
	},
	func(s []float64) {
		s = s[:cap(s)]
		for i := range s {
			s[i] = 0
		}
	},
)

// GetFloatSlice retrieves a zeroed float64 slice of length n from the
// global pool. If the requested length exceeds the pooled capacity, a new
// slice is allocated directly.
func GetFloatSlice(n int) []float64 {
	s := FloatSlicePool.Get()
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

// PutFloatSlice returns a float64 slice to the global pool for reuse.
// This function is safe to call with nil slices.
func PutFloatSlice(s []float64) {
	if s != nil {
		FloatSlicePool.Put(s)
	}
}

// defaultBufferCap sizes fresh scratch buffers for encoding and
// compression.
const defaultBufferCap = 4096

// BytesBufferPool provides pooling for encoding scratch buffers.
var BytesBufferPool = New(
	func() *bytes.Buffer {
		b := new(bytes.Buffer)
		b.Grow(defaultBufferCap)
		return b
	},
	func(b *bytes.Buffer) {
		b.Reset()
	},
)

// GetBuffer retrieves an empty buffer from the global pool.
func GetBuffer() *bytes.Buffer {
	return BytesBufferPool.Get()
}

// PutBuffer returns a buffer to the global pool for reuse.
// This function is safe to call with nil buffers.
func PutBuffer(b *bytes.Buffer) {
	if b != nil {
		BytesBufferPool.Put(b)
	}
}

// Stats represents pool statistics for monitoring.
type Stats struct {
	// Allocated is the total number of objects created by the pool
	Allocated int64
	// InUse is the current number of objects checked out from the pool
	InUse int64
	// Hits is the number of successful pool retrievals
	Hits int64
	// Misses is the number of times a new object had to be created
	Misses int64
}

// GetGlobalStats returns statistics for the global pools, useful for
// detecting leaks in long solves.
func GetGlobalStats() map[string]Stats {
	out := make(map[string]Stats, 2)

	alloc, inUse, hits, misses := FloatSlicePool.Stats()
	out["float_slice"] = Stats{Allocated: alloc, InUse: inUse, Hits: hits, Misses: misses}

	alloc, inUse, hits, misses = BytesBufferPool.Stats()
	out["bytes_buffer"] = Stats{Allocated: alloc, InUse: inUse, Hits: hits, Misses: misses}

	return out
}
