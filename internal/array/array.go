// Package array binds a dtype, dims, and a storage reference into the
// logical tensor exchanged across the pipeline. Arrays are cheap
// metadata: views, reshapes, and transposes never copy bytes, and many
// arrays may alias one Storage through its reference count.
package array

import (
	"context"
	"errors"
	"fmt"

	"github.com/loom-ml/loom/internal/device"
	"github.com/loom-ml/loom/internal/dtype"
	"github.com/loom-ml/loom/internal/shape"
	"github.com/loom-ml/loom/internal/storage"
)

var (
	// ErrOutOfBounds is returned when a view range exceeds an axis extent.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrInvalidPermutation is returned when a transpose permutation is
	// not a bijection over the axis indices.
	ErrInvalidPermutation = errors.New("invalid permutation")

	// ErrIncompatibleCast is returned when a reinterpreting cast does not
	// divide evenly into the existing buffer extent.
	ErrIncompatibleCast = errors.New("incompatible cast")
)

// Array is {dtype, dims, storage, byte offset, element strides}. A view
// and an owner are the same type; only the Storage reference count
// distinguishes lifetimes.
type Array struct {
	dt      *dtype.DType
	dims    shape.Dims
	strides []int // element strides, row-major by default
	offset  int   // byte offset into store
	store   *storage.Storage

	released bool
}

// New allocates a fresh Storage in the given residency and wraps it in
// an owning Array with default strides. Dims must be concrete.
func New(hostAlloc *device.HostAllocator, devAlloc device.Allocator, dt *dtype.DType, dims shape.Dims, res storage.Residency) (*Array, error) {
	count, err := dims.ElementCount()
	if err != nil {
		return nil, err
	}
	size, err := dt.SizeInBytes(count)
	if err != nil {
		return nil, err
	}
	store, err := storage.Allocate(hostAlloc, devAlloc, size, res)
	if err != nil {
		return nil, err
	}
	return &Array{
		dt:      dt,
		dims:    dims.Clone(),
		strides: dims.DefaultStrides(),
		store:   store,
	}, nil
}

// Wrap builds an Array over an existing Storage, retaining it. The
// offset/stride geometry is validated against the Storage byte length.
func Wrap(dt *dtype.DType, dims shape.Dims, strides []int, offset int, store *storage.Storage) (*Array, error) {
	a := &Array{dt: dt, dims: dims.Clone(), strides: append([]int(nil), strides...), offset: offset, store: store}
	if err := a.validate(); err != nil {
		return nil, err
	}
	store.Retain()
	return a, nil
}

// validate checks that every addressable element lands inside the
// Storage byte range.
func (a *Array) validate() error {
	if len(a.strides) != a.dims.Rank() {
		return fmt.Errorf("%w: %d strides for rank %d", shape.ErrInvalidShape, len(a.strides), a.dims.Rank())
	}
	count, err := a.dims.ElementCount()
	if err != nil {
		return err
	}
	if a.offset < 0 || a.offset > a.store.ByteLen() {
		return fmt.Errorf("%w: offset %d outside storage of %d bytes", ErrOutOfBounds, a.offset, a.store.ByteLen())
	}
	if count == 0 {
		return nil
	}
	maxElem := 0
	for i, e := range a.dims {
		maxElem += (e - 1) * a.strides[i]
	}
	if a.dt.IsPacked() {
		// Packed kinds stay contiguous; the flat footprint bounds them.
		need, err := a.dt.SizeInBytes(count)
		if err != nil {
			return err
		}
		if a.offset+need > a.store.ByteLen() {
			return fmt.Errorf("%w: array needs %d bytes at offset %d, storage has %d",
				ErrOutOfBounds, need, a.offset, a.store.ByteLen())
		}
		return nil
	}
	end := a.offset + (maxElem+1)*a.dt.ElemBytes()
	if end > a.store.ByteLen() {
		return fmt.Errorf("%w: array addresses byte %d, storage has %d", ErrOutOfBounds, end, a.store.ByteLen())
	}
	return nil
}

// DType returns the element type descriptor.
func (a *Array) DType() *dtype.DType {
	return a.dt
}

// Dims returns the per-axis extents. Callers must not mutate it.
func (a *Array) Dims() shape.Dims {
	return a.dims
}

// Strides returns the element strides. Callers must not mutate it.
func (a *Array) Strides() []int {
	return a.strides
}

// Offset returns the byte offset into the Storage.
func (a *Array) Offset() int {
	return a.offset
}

// Storage returns the backing Storage.
func (a *Array) Storage() *storage.Storage {
	return a.store
}

// Residency returns the Storage's current residency.
func (a *Array) Residency() storage.Residency {
	return a.store.Residency()
}

// ElementCount returns the total number of elements.
func (a *Array) ElementCount() int {
	n, err := a.dims.ElementCount()
	if err != nil {
		panic(fmt.Sprintf("array: non-concrete dims %v escaped construction", a.dims))
	}
	return n
}

// IsContiguous reports whether the array has default row-major layout.
func (a *Array) IsContiguous() bool {
	return a.dims.IsContiguous(a.strides)
}

// ByteSize returns the flat byte footprint of the elements.
func (a *Array) ByteSize() int {
	n, err := a.dt.SizeInBytes(a.ElementCount())
	if err != nil {
		panic(fmt.Sprintf("array: misaligned packed dims %v escaped construction", a.dims))
	}
	return n
}

// ByteOffsetOf resolves an index tuple to its byte offset within the
// Storage, checking bounds on every axis.
func (a *Array) ByteOffsetOf(indices ...int) (int, error) {
	if len(indices) != a.dims.Rank() {
		return 0, fmt.Errorf("%w: %d indices for rank %d", ErrOutOfBounds, len(indices), a.dims.Rank())
	}
	elem := 0
	for i, idx := range indices {
		if idx < 0 || idx >= a.dims[i] {
			return 0, fmt.Errorf("%w: index %d outside axis %d extent %d", ErrOutOfBounds, idx, i, a.dims[i])
		}
		elem += idx * a.strides[i]
	}
	switch {
	case a.dt.IsBlock():
		if elem%a.dt.BlockSize() != 0 {
			return 0, fmt.Errorf("%w: element %d of %s is not block-aligned", dtype.ErrInvalidPacking, elem, a.dt)
		}
		return a.offset + elem/a.dt.BlockSize()*a.dt.BlockBytes(), nil
	case a.dt.IsPacked():
		bits := elem * a.dt.BitWidth()
		if bits%8 != 0 {
			return 0, fmt.Errorf("%w: element %d of %s is not byte-addressable", dtype.ErrInvalidPacking, elem, a.dt)
		}
		return a.offset + bits/8, nil
	default:
		return a.offset + elem*a.dt.ElemBytes(), nil
	}
}

// TransferTo moves the backing Storage to the target residency. All
// aliasing views observe the move, since they share the Storage.
func (a *Array) TransferTo(ctx context.Context, res storage.Residency) error {
	return a.store.TransferTo(ctx, res)
}

// ReadBytes copies the array's flat bytes into dst. Requires host
// accessibility and default strides.
func (a *Array) ReadBytes(dst []byte) error {
	if !a.IsContiguous() {
		return fmt.Errorf("%w: strided array, compact with Clone first", shape.ErrNotContiguous)
	}
	if len(dst) != a.ByteSize() {
		return fmt.Errorf("%w: dst is %d bytes, array is %d", shape.ErrShapeMismatch, len(dst), a.ByteSize())
	}
	return a.store.ReadAt(a.offset, dst)
}

// WriteBytes copies src over the array's flat bytes. Requires host
// accessibility and default strides; writing into a device-only array
// fails with ErrWrongResidency and leaves the bytes untouched.
func (a *Array) WriteBytes(src []byte) error {
	if !a.IsContiguous() {
		return fmt.Errorf("%w: strided array", shape.ErrNotContiguous)
	}
	if len(src) != a.ByteSize() {
		return fmt.Errorf("%w: src is %d bytes, array is %d", shape.ErrShapeMismatch, len(src), a.ByteSize())
	}
	return a.store.WriteAt(a.offset, src)
}

// Clone materializes a deep copy: a fresh Storage in the same residency
// with the bytes copied, default strides, no sharing with the source.
// Strided views are compacted; compaction requires host accessibility.
func (a *Array) Clone(ctx context.Context) (*Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrTransferFailed, err)
	}

	out := &Array{
		dt:      a.dt,
		dims:    a.dims.Clone(),
		strides: a.dims.DefaultStrides(),
	}
	size := a.ByteSize()
	store, err := storage.Allocate(a.store.HostAllocator(), a.store.DeviceAllocator(), size, a.store.Residency())
	if err != nil {
		return nil, err
	}
	out.store = store

	if a.IsContiguous() {
		if err := a.store.CopyInto(store, a.offset, 0, size); err != nil {
			store.Release()
			return nil, err
		}
		return out, nil
	}

	if err := a.compactInto(store); err != nil {
		store.Release()
		return nil, err
	}
	return out, nil
}

// compactInto gathers a strided view into dst's flat layout, walking
// contiguous innermost runs.
func (a *Array) compactInto(dst *storage.Storage) error {
	src, err := a.store.HostBytes()
	if err != nil {
		return err
	}
	elemBytes := a.dt.ElemBytes()
	if elemBytes == 0 {
		return fmt.Errorf("%w: cannot compact packed dtype %s", dtype.ErrInvalidPacking, a.dt)
	}

	rank := a.dims.Rank()
	if rank == 0 {
		return dst.WriteAt(0, src[a.offset:a.offset+elemBytes])
	}

	// Innermost axis forms a run when its stride is 1.
	runLen := 1
	runAxes := rank
	if a.strides[rank-1] == 1 {
		runLen = a.dims[rank-1]
		runAxes = rank - 1
	}

	idx := make([]int, runAxes)
	dstOff := 0
	for {
		elem := 0
		for i := 0; i < runAxes; i++ {
			elem += idx[i] * a.strides[i]
		}
		srcOff := a.offset + elem*elemBytes
		n := runLen * elemBytes
		if err := dst.WriteAt(dstOff, src[srcOff:srcOff+n]); err != nil {
			return err
		}
		dstOff += n

		// Odometer increment over the outer axes.
		axis := runAxes - 1
		for axis >= 0 {
			idx[axis]++
			if idx[axis] < a.dims[axis] {
				break
			}
			idx[axis] = 0
			axis--
		}
		if axis < 0 {
			return nil
		}
	}
}

// Release drops this Array's reference on the Storage. The last release
// across all aliasing arrays frees the buffer. Releasing the same Array
// twice is a programming error and panics.
func (a *Array) Release() {
	if a.released {
		panic("array: released twice")
	}
	a.released = true
	a.store.Release()
}

// String implements fmt.Stringer.
func (a *Array) String() string {
	return fmt.Sprintf("Array[%s]%v on %s", a.dt, a.dims, a.Residency())
}
