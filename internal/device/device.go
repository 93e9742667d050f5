// Package device is the resource-management boundary of the array core:
// raw buffer allocation, release, and host<->device byte movement.
// Storage composes these primitives; it never talks to a backend
// directly.
package device

import "errors"

// ErrAllocationFailed is returned when an allocator cannot satisfy a
// request, whether from capacity limits or backend failure.
var ErrAllocationFailed = errors.New("allocation failed")

// Buffer is a handle to one device-resident allocation of fixed byte
// length. Upload and Download move whole byte ranges; partial-completion
// states are never exposed.
type Buffer interface {
	// Len returns the fixed byte length of the allocation.
	Len() int

	// Upload copies len(src) host bytes into the buffer starting at off.
	Upload(off int, src []byte) error

	// Download copies len(dst) buffer bytes starting at off into dst.
	Download(off int, dst []byte) error

	// Release returns the buffer to its allocator. The handle must not
	// be used afterwards.
	Release()
}

// Allocator creates device-resident buffers. Implementations:
//
//   - webgpu: wgpu storage buffers (real device memory)
//   - Mock: host-memory fake for tests
type Allocator interface {
	Name() string
	Allocate(n int) (Buffer, error)
}
