package device

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Mock is an Allocator backed by ordinary host memory that behaves like
// a device: its buffers are only reachable through Upload/Download. It
// records call counts and can be told to fail, which makes it the test
// double for Storage and Array without real hardware.
type Mock struct {
	mu         sync.Mutex
	failAllocs bool
	failCopies bool

	Allocs    atomic.Int64
	Releases  atomic.Int64
	Uploads   atomic.Int64
	Downloads atomic.Int64
}

// NewMock creates a mock device allocator.
func NewMock() *Mock {
	return &Mock{}
}

// Name identifies the allocator.
func (m *Mock) Name() string {
	return "mock"
}

// FailAllocations makes subsequent Allocate calls fail.
func (m *Mock) FailAllocations(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAllocs = fail
}

// FailCopies makes subsequent Upload/Download calls fail.
func (m *Mock) FailCopies(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCopies = fail
}

// Allocate creates a zeroed mock device buffer of n bytes.
func (m *Mock) Allocate(n int) (Buffer, error) {
	m.mu.Lock()
	fail := m.failAllocs
	m.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: mock allocator failure injected", ErrAllocationFailed)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocationFailed, n)
	}
	m.Allocs.Add(1)
	deviceAllocs.Inc()
	deviceBytesInUse.Add(float64(n))
	return &mockBuffer{data: make([]byte, n), owner: m}, nil
}

type mockBuffer struct {
	data  []byte
	owner *Mock
}

func (b *mockBuffer) Len() int {
	return len(b.data)
}

func (b *mockBuffer) Upload(off int, src []byte) error {
	b.owner.mu.Lock()
	fail := b.owner.failCopies
	b.owner.mu.Unlock()
	if fail {
		return fmt.Errorf("mock copy failure injected")
	}
	if off < 0 || off+len(src) > len(b.data) {
		return fmt.Errorf("upload range [%d,%d) outside buffer of %d bytes", off, off+len(src), len(b.data))
	}
	b.owner.Uploads.Add(1)
	copy(b.data[off:], src)
	return nil
}

func (b *mockBuffer) Download(off int, dst []byte) error {
	b.owner.mu.Lock()
	fail := b.owner.failCopies
	b.owner.mu.Unlock()
	if fail {
		return fmt.Errorf("mock copy failure injected")
	}
	if off < 0 || off+len(dst) > len(b.data) {
		return fmt.Errorf("download range [%d,%d) outside buffer of %d bytes", off, off+len(dst), len(b.data))
	}
	b.owner.Downloads.Add(1)
	copy(dst, b.data[off:])
	return nil
}

func (b *mockBuffer) Release() {
	b.owner.Releases.Add(1)
	deviceBytesInUse.Sub(float64(len(b.data)))
	b.data = nil
}
