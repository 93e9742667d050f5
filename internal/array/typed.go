package array

import (
	"fmt"
	"unsafe"

	"github.com/loom-ml/loom/internal/device"
	"github.com/loom-ml/loom/internal/dtype"
	"github.com/loom-ml/loom/internal/shape"
	"github.com/loom-ml/loom/internal/storage"
)

// Typed slice views over host-resident contiguous arrays. The returned
// slices alias the Storage bytes directly; writes through them are
// writes into the array.

func (a *Array) typedBase(want *dtype.DType) ([]byte, error) {
	if a.dt != want {
		return nil, fmt.Errorf("%w: array dtype is %s, not %s", ErrIncompatibleCast, a.dt, want)
	}
	if !a.IsContiguous() {
		return nil, fmt.Errorf("%w: strided array", shape.ErrNotContiguous)
	}
	host, err := a.store.HostBytes()
	if err != nil {
		return nil, err
	}
	return host[a.offset:], nil
}

// Float32s interprets the data as []float32.
func (a *Array) Float32s() ([]float32, error) {
	data, err := a.typedBase(dtype.Float32)
	if err != nil {
		return nil, err
	}
	n := a.ElementCount()
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), n), nil
}

// Float64s interprets the data as []float64.
func (a *Array) Float64s() ([]float64, error) {
	data, err := a.typedBase(dtype.Float64)
	if err != nil {
		return nil, err
	}
	n := a.ElementCount()
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), n), nil
}

// Int32s interprets the data as []int32.
func (a *Array) Int32s() ([]int32, error) {
	data, err := a.typedBase(dtype.Int32)
	if err != nil {
		return nil, err
	}
	n := a.ElementCount()
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), n), nil
}

// Int64s interprets the data as []int64.
func (a *Array) Int64s() ([]int64, error) {
	data, err := a.typedBase(dtype.Int64)
	if err != nil {
		return nil, err
	}
	n := a.ElementCount()
	if n == 0 {
		return nil, nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), n), nil
}

// Uint8s interprets the data as []uint8.
func (a *Array) Uint8s() ([]uint8, error) {
	data, err := a.typedBase(dtype.Uint8)
	if err != nil {
		return nil, err
	}
	return data[:a.ElementCount()], nil
}

// FromFloat32s allocates a host-resident float32 array and copies vals in.
func FromFloat32s(hostAlloc *device.HostAllocator, devAlloc device.Allocator, vals []float32, dims shape.Dims) (*Array, error) {
	a, err := New(hostAlloc, devAlloc, dtype.Float32, dims, storage.Host)
	if err != nil {
		return nil, err
	}
	if len(vals) != a.ElementCount() {
		a.Release()
		return nil, fmt.Errorf("%w: %d values for dims %v", shape.ErrShapeMismatch, len(vals), dims)
	}
	dst, err := a.Float32s()
	if err != nil {
		a.Release()
		return nil, err
	}
	copy(dst, vals)
	return a, nil
}

// FromBytes allocates a host-resident array of dt and copies raw in.
func FromBytes(hostAlloc *device.HostAllocator, devAlloc device.Allocator, dt *dtype.DType, raw []byte, dims shape.Dims) (*Array, error) {
	a, err := New(hostAlloc, devAlloc, dt, dims, storage.Host)
	if err != nil {
		return nil, err
	}
	if err := a.WriteBytes(raw); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}
