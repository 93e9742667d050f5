package device

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// Size thresholds for host pool categories.
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 100         // max pooled buffers per category
)

// HostOption configures a HostAllocator.
type HostOption func(*HostAllocator)

// WithLogger attaches a logger; the allocator is silent by default.
func WithLogger(l zerolog.Logger) HostOption {
	return func(h *HostAllocator) { h.log = l }
}

// WithCapacity caps the total bytes the allocator will hand out at once.
// Zero means unlimited.
func WithCapacity(bytes int) HostOption {
	return func(h *HostAllocator) { h.capacity = bytes }
}

// HostAllocator hands out host-addressable byte buffers, recycling them
// through size-classed free lists to avoid re-allocation churn.
type HostAllocator struct {
	mu       sync.Mutex
	small    [][]byte
	medium   [][]byte
	large    [][]byte
	inUse    int
	capacity int
	log      zerolog.Logger
}

// NewHost creates a host allocator.
func NewHost(opts ...HostOption) *HostAllocator {
	h := &HostAllocator{
		small:  make([][]byte, 0, maxPoolSize),
		medium: make([][]byte, 0, maxPoolSize),
		large:  make([][]byte, 0, maxPoolSize),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name identifies the allocator.
func (h *HostAllocator) Name() string {
	return "host"
}

// Get returns a zeroed buffer of exactly n bytes, reusing a pooled
// buffer when one of sufficient capacity exists.
func (h *HostAllocator) Get(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocationFailed, n)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.capacity > 0 && h.inUse+n > h.capacity {
		return nil, fmt.Errorf("%w: host capacity exhausted (%d in use, %d requested, %d cap)",
			ErrAllocationFailed, h.inUse, n, h.capacity)
	}

	pool := h.pool(n)
	for i, buf := range *pool {
		if cap(buf) >= n {
			last := len(*pool) - 1
			(*pool)[i] = (*pool)[last]
			*pool = (*pool)[:last]
			hostPoolHits.Inc()
			h.inUse += n
			hostBytesInUse.Set(float64(h.inUse))
			out := buf[:n]
			clear(out)
			return out, nil
		}
	}

	hostPoolMisses.Inc()
	h.inUse += n
	hostBytesInUse.Set(float64(h.inUse))
	h.log.Debug().Int("bytes", n).Msg("host alloc")
	return make([]byte, n), nil
}

// Put returns a buffer to the pool. Full categories drop the buffer for
// the garbage collector to reclaim.
func (h *HostAllocator) Put(buf []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.inUse -= len(buf)
	if h.inUse < 0 {
		h.inUse = 0
	}
	hostBytesInUse.Set(float64(h.inUse))

	pool := h.pool(len(buf))
	if len(*pool) < maxPoolSize {
		*pool = append(*pool, buf)
	}
}

// InUse returns the bytes currently handed out.
func (h *HostAllocator) InUse() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inUse
}

func (h *HostAllocator) pool(n int) *[][]byte {
	switch {
	case n < smallThreshold:
		return &h.small
	case n < mediumThreshold:
		return &h.medium
	default:
		return &h.large
	}
}
