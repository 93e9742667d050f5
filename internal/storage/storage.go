// Package storage owns the byte buffers behind arrays: where they live
// (host, device, or both), how long they live (shared reference
// counting), and how bytes move between residencies.
//
// Storage never mutates buffer contents on its own; only explicit writes
// and transfers touch bytes. Synchronizing content access across
// concurrent writers is the caller's responsibility; the only state
// Storage guards internally is its reference count and lease count.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/loom-ml/loom/internal/device"
)

var (
	// ErrTransferFailed is returned when a residency transfer fails on
	// the backend. Residency is left unchanged; no partial state leaks.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrWrongResidency is returned when an operation needs a residency
	// the Storage does not currently have.
	ErrWrongResidency = errors.New("wrong residency")

	// ErrStorageLeased is returned when a transfer is attempted while a
	// host mapping lease is open.
	ErrStorageLeased = errors.New("storage leased")
)

// Residency is the closed set of memory domains a Storage can occupy.
type Residency int

const (
	// Host means the bytes are in host-addressable memory only.
	Host Residency = iota
	// Device means the bytes are in device memory only.
	Device
	// HostDevice means both domains hold a copy of the bytes.
	HostDevice
)

// String implements fmt.Stringer.
func (r Residency) String() string {
	switch r {
	case Host:
		return "host"
	case Device:
		return "device"
	case HostDevice:
		return "host+device"
	default:
		return "unknown"
	}
}

// Storage is one reference-counted allocation of fixed byte length.
// Many arrays (views) may share a Storage; the last release frees the
// underlying regions back to their allocators exactly once.
type Storage struct {
	byteLen   int
	hostAlloc *device.HostAllocator
	devAlloc  device.Allocator

	refs atomic.Int32

	mu     sync.Mutex
	host   []byte        // nil unless host-accessible
	dev    device.Buffer // nil unless device-accessible
	leases int
	freed  bool
}

// Allocate obtains a buffer of n bytes in the requested residency.
// The returned Storage starts with a reference count of 1.
func Allocate(hostAlloc *device.HostAllocator, devAlloc device.Allocator, n int, res Residency) (*Storage, error) {
	s := &Storage{byteLen: n, hostAlloc: hostAlloc, devAlloc: devAlloc}

	switch res {
	case Host:
		buf, err := hostAlloc.Get(n)
		if err != nil {
			return nil, err
		}
		s.host = buf
	case Device:
		buf, err := devAlloc.Allocate(n)
		if err != nil {
			return nil, err
		}
		s.dev = buf
	case HostDevice:
		hbuf, err := hostAlloc.Get(n)
		if err != nil {
			return nil, err
		}
		dbuf, err := devAlloc.Allocate(n)
		if err != nil {
			hostAlloc.Put(hbuf)
			return nil, err
		}
		s.host = hbuf
		s.dev = dbuf
	default:
		return nil, fmt.Errorf("%w: unknown residency %d", device.ErrAllocationFailed, res)
	}

	s.refs.Store(1)
	return s, nil
}

// ByteLen returns the fixed byte length. It never changes after creation.
func (s *Storage) ByteLen() int {
	return s.byteLen
}

// Residency returns the domains currently holding the bytes.
func (s *Storage) Residency() Residency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.residencyLocked()
}

func (s *Storage) residencyLocked() Residency {
	switch {
	case s.host != nil && s.dev != nil:
		return HostDevice
	case s.dev != nil:
		return Device
	default:
		return Host
	}
}

// HostAccessible reports whether the bytes can be addressed from host code.
func (s *Storage) HostAccessible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host != nil
}

// DeviceAccessible reports whether a device copy of the bytes exists.
func (s *Storage) DeviceAccessible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev != nil
}

// Retain increments the reference count. Every Array holding this
// Storage calls it at construction.
func (s *Storage) Retain() {
	s.refs.Add(1)
}

// Release decrements the reference count. The drop to zero frees all
// regions. Releasing a Storage to zero while a host mapping lease is
// still open is a programming error and panics.
func (s *Storage) Release() {
	if s.refs.Add(-1) != 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freed {
		panic("storage: released twice")
	}
	if s.leases > 0 {
		panic("storage: released with open host mapping lease")
	}
	s.freed = true
	if s.host != nil {
		s.hostAlloc.Put(s.host)
		s.host = nil
	}
	if s.dev != nil {
		s.dev.Release()
		s.dev = nil
	}
}

// Refs returns the current reference count.
func (s *Storage) Refs() int {
	return int(s.refs.Load())
}

// TransferTo moves the bytes so that exactly the target residency holds
// them: Host and Device replace, HostDevice augments. A no-op when the
// target already matches. Fails with ErrStorageLeased while a host
// mapping is open, and with ErrTransferFailed on backend errors, in
// which case residency is unchanged. This is the only blocking
// operation in the core; ctx cancels before the copy starts.
func (s *Storage) TransferTo(ctx context.Context, target Residency) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.leases > 0 {
		return fmt.Errorf("%w: %d open host mapping(s)", ErrStorageLeased, s.leases)
	}
	if s.residencyLocked() == target {
		return nil
	}

	switch target {
	case Host:
		if s.host == nil {
			buf, err := s.hostAlloc.Get(s.byteLen)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			if err := s.dev.Download(0, buf); err != nil {
				s.hostAlloc.Put(buf)
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			s.host = buf
			device.ObserveTransfer("device_to_host")
		}
		s.dev.Release()
		s.dev = nil
	case Device:
		if s.dev == nil {
			buf, err := s.devAlloc.Allocate(s.byteLen)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			if err := buf.Upload(0, s.host); err != nil {
				buf.Release()
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			s.dev = buf
			device.ObserveTransfer("host_to_device")
		}
		s.hostAlloc.Put(s.host)
		s.host = nil
	case HostDevice:
		if s.dev == nil {
			buf, err := s.devAlloc.Allocate(s.byteLen)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			if err := buf.Upload(0, s.host); err != nil {
				buf.Release()
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			s.dev = buf
			device.ObserveTransfer("host_to_device")
		} else {
			buf, err := s.hostAlloc.Get(s.byteLen)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			if err := s.dev.Download(0, buf); err != nil {
				s.hostAlloc.Put(buf)
				return fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
			s.host = buf
			device.ObserveTransfer("device_to_host")
		}
	default:
		return fmt.Errorf("%w: unknown residency %d", ErrTransferFailed, target)
	}
	return nil
}

// ReadAt copies len(dst) bytes starting at off into dst. Requires host
// accessibility; device-only reads go through TransferTo or Clone.
func (s *Storage) ReadAt(off int, dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == nil {
		return fmt.Errorf("%w: storage is %s, host access required", ErrWrongResidency, s.residencyLocked())
	}
	if off < 0 || off+len(dst) > s.byteLen {
		return fmt.Errorf("read range [%d,%d) outside storage of %d bytes", off, off+len(dst), s.byteLen)
	}
	copy(dst, s.host[off:])
	return nil
}

// WriteAt copies src into the host region starting at off. Requires
// host accessibility. A device copy, if present, is NOT updated; content
// coherence across residencies after a write belongs to the caller.
func (s *Storage) WriteAt(off int, src []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == nil {
		return fmt.Errorf("%w: storage is %s, host access required", ErrWrongResidency, s.residencyLocked())
	}
	if off < 0 || off+len(src) > s.byteLen {
		return fmt.Errorf("write range [%d,%d) outside storage of %d bytes", off, off+len(src), s.byteLen)
	}
	copy(s.host[off:], src)
	return nil
}

// HostAllocator returns the host allocator this Storage draws from.
func (s *Storage) HostAllocator() *device.HostAllocator {
	return s.hostAlloc
}

// DeviceAllocator returns the device allocator this Storage draws from.
func (s *Storage) DeviceAllocator() device.Allocator {
	return s.devAlloc
}

// HostBytes returns the host byte region directly. The slice is valid
// only while the Storage stays host-resident; callers that hold it
// across other operations should take a MapForHost lease instead.
func (s *Storage) HostBytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == nil {
		return nil, fmt.Errorf("%w: storage is %s, host access required", ErrWrongResidency, s.residencyLocked())
	}
	return s.host, nil
}

// CopyInto copies a byte range of this Storage into dst, handling any
// residency pair through the host/download/upload paths. Used by clone
// and import operations.
func (s *Storage) CopyInto(dst *Storage, srcOff, dstOff, n int) error {
	if n < 0 || srcOff < 0 || srcOff+n > s.byteLen {
		return fmt.Errorf("copy range [%d,%d) outside source storage of %d bytes", srcOff, srcOff+n, s.byteLen)
	}
	if dstOff < 0 || dstOff+n > dst.byteLen {
		return fmt.Errorf("copy range [%d,%d) outside destination storage of %d bytes", dstOff, dstOff+n, dst.byteLen)
	}
	tmp := make([]byte, n)

	s.mu.Lock()
	if s.host != nil {
		copy(tmp, s.host[srcOff:srcOff+n])
		s.mu.Unlock()
	} else {
		err := s.dev.Download(srcOff, tmp)
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	dst.mu.Lock()
	defer dst.mu.Unlock()
	if dst.host != nil {
		copy(dst.host[dstOff:], tmp)
	}
	if dst.dev != nil {
		if err := dst.dev.Upload(dstOff, tmp); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	return nil
}
