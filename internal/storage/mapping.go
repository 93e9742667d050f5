package storage

import "fmt"

// HostMapping is a scoped lease on a Storage's host byte range. While
// any mapping is open, transfers away from (or into) another residency
// and final release are excluded, so the borrowed bytes cannot be
// invalidated under the holder. Close the mapping as soon as host-side
// manipulation is done.
type HostMapping struct {
	s      *Storage
	bytes  []byte
	closed bool
}

// MapForHost acquires a host mapping. Fails with ErrWrongResidency when
// the Storage has no host region.
func (s *Storage) MapForHost() (*HostMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.host == nil {
		return nil, fmt.Errorf("%w: storage is %s, host access required", ErrWrongResidency, s.residencyLocked())
	}
	s.leases++
	return &HostMapping{s: s, bytes: s.host}, nil
}

// Bytes returns the mapped host byte range. The slice is valid only
// until Close.
func (m *HostMapping) Bytes() []byte {
	if m.closed {
		panic("storage: use of closed host mapping")
	}
	return m.bytes
}

// Close releases the lease. Closing twice is a no-op.
func (m *HostMapping) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.bytes = nil
	m.s.mu.Lock()
	m.s.leases--
	m.s.mu.Unlock()
}

// Leases returns the number of open host mappings.
func (s *Storage) Leases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leases
}
