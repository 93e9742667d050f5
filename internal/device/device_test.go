package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostAllocatorGetPut(t *testing.T) {
	h := NewHost()

	buf, err := h.Get(1024)
	require.NoError(t, err)
	assert.Len(t, buf, 1024)
	assert.Equal(t, 1024, h.InUse())

	buf[0] = 0xAA
	h.Put(buf)
	assert.Equal(t, 0, h.InUse())

	// Reused buffers come back zeroed.
	again, err := h.Get(512)
	require.NoError(t, err)
	assert.Len(t, again, 512)
	for _, b := range again {
		require.Zero(t, b)
	}
}

func TestHostAllocatorCapacity(t *testing.T) {
	h := NewHost(WithCapacity(100))

	buf, err := h.Get(80)
	require.NoError(t, err)

	_, err = h.Get(40)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllocationFailed))

	h.Put(buf)
	_, err = h.Get(40)
	require.NoError(t, err)
}

func TestHostAllocatorNegativeSize(t *testing.T) {
	h := NewHost()
	_, err := h.Get(-1)
	assert.True(t, errors.Is(err, ErrAllocationFailed))
}

func TestMockRoundTrip(t *testing.T) {
	m := NewMock()

	buf, err := m.Allocate(16)
	require.NoError(t, err)
	assert.Equal(t, 16, buf.Len())

	src := []byte{1, 2, 3, 4}
	require.NoError(t, buf.Upload(4, src))

	dst := make([]byte, 4)
	require.NoError(t, buf.Download(4, dst))
	assert.Equal(t, src, dst)

	// Untouched bytes stay zero.
	head := make([]byte, 4)
	require.NoError(t, buf.Download(0, head))
	assert.Equal(t, []byte{0, 0, 0, 0}, head)

	buf.Release()
	assert.EqualValues(t, 1, m.Allocs.Load())
	assert.EqualValues(t, 1, m.Releases.Load())
}

func TestMockRangeChecks(t *testing.T) {
	m := NewMock()
	buf, err := m.Allocate(8)
	require.NoError(t, err)

	assert.Error(t, buf.Upload(6, []byte{1, 2, 3}))
	assert.Error(t, buf.Download(-1, make([]byte, 2)))
}

func TestMockFailureInjection(t *testing.T) {
	m := NewMock()

	m.FailAllocations(true)
	_, err := m.Allocate(8)
	assert.True(t, errors.Is(err, ErrAllocationFailed))
	m.FailAllocations(false)

	buf, err := m.Allocate(8)
	require.NoError(t, err)

	m.FailCopies(true)
	assert.Error(t, buf.Upload(0, []byte{1}))
	assert.Error(t, buf.Download(0, make([]byte, 1)))
}
