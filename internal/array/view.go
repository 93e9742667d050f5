package array

import (
	"fmt"

	"github.com/loom-ml/loom/internal/dtype"
	"github.com/loom-ml/loom/internal/shape"
)

// Range selects [Start, Stop) along one axis.
type Range struct {
	Start int
	Stop  int
}

// Full marks a range that keeps the whole axis.
var Full = Range{Start: 0, Stop: -1}

// View slices the array along leading axes and returns a new Array
// sharing the same Storage: adjusted offset, narrowed extents, strides
// unchanged, zero bytes copied. Axes beyond len(ranges) are kept whole.
func (a *Array) View(ranges ...Range) (*Array, error) {
	if len(ranges) > a.dims.Rank() {
		return nil, fmt.Errorf("%w: %d ranges for rank %d", ErrOutOfBounds, len(ranges), a.dims.Rank())
	}

	newDims := a.dims.Clone()
	startElem := 0
	for i, r := range ranges {
		if r == Full {
			continue
		}
		if r.Start < 0 || r.Stop < r.Start || r.Stop > a.dims[i] {
			return nil, fmt.Errorf("%w: range [%d,%d) outside axis %d extent %d",
				ErrOutOfBounds, r.Start, r.Stop, i, a.dims[i])
		}
		newDims[i] = r.Stop - r.Start
		startElem += r.Start * a.strides[i]
	}

	byteShift := 0
	switch {
	case a.dt.IsBlock():
		if startElem%a.dt.BlockSize() != 0 {
			return nil, fmt.Errorf("%w: view start %d misaligned for %s", dtype.ErrInvalidPacking, startElem, a.dt)
		}
		byteShift = startElem / a.dt.BlockSize() * a.dt.BlockBytes()
	case a.dt.IsPacked():
		bits := startElem * a.dt.BitWidth()
		if bits%8 != 0 {
			return nil, fmt.Errorf("%w: view start %d misaligned for %s", dtype.ErrInvalidPacking, startElem, a.dt)
		}
		byteShift = bits / 8
	default:
		byteShift = startElem * a.dt.ElemBytes()
	}

	out := &Array{
		dt:      a.dt,
		dims:    newDims,
		strides: append([]int(nil), a.strides...),
		offset:  a.offset + byteShift,
		store:   a.store,
	}
	a.store.Retain()
	return out, nil
}

// Reshape reinterprets the extents without moving bytes. The source
// must be contiguous and the element count must be preserved.
func (a *Array) Reshape(newDims shape.Dims) (*Array, error) {
	if !a.IsContiguous() {
		return nil, fmt.Errorf("%w: reshape of strided array %v", shape.ErrNotContiguous, a.dims)
	}
	if err := a.dims.CheckReshape(newDims); err != nil {
		return nil, err
	}
	out := &Array{
		dt:      a.dt,
		dims:    newDims.Clone(),
		strides: newDims.DefaultStrides(),
		offset:  a.offset,
		store:   a.store,
	}
	a.store.Retain()
	return out, nil
}

// Transpose permutes the axes. perm must be a bijection over axis
// indices; an empty perm reverses the axes. The result is a strided
// view over the same Storage.
func (a *Array) Transpose(perm ...int) (*Array, error) {
	rank := a.dims.Rank()
	if len(perm) == 0 {
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}
	if len(perm) != rank {
		return nil, fmt.Errorf("%w: %d axes in permutation for rank %d", ErrInvalidPermutation, len(perm), rank)
	}
	seen := make([]bool, rank)
	for _, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return nil, fmt.Errorf("%w: %v is not a bijection over %d axes", ErrInvalidPermutation, perm, rank)
		}
		seen[p] = true
	}

	newDims := make(shape.Dims, rank)
	newStrides := make([]int, rank)
	for i, p := range perm {
		newDims[i] = a.dims[p]
		newStrides[i] = a.strides[p]
	}

	out := &Array{
		dt:      a.dt,
		dims:    newDims,
		strides: newStrides,
		offset:  a.offset,
		store:   a.store,
	}
	a.store.Retain()
	return out, nil
}

// CastView reinterprets the bytes as another scalar dtype. The byte
// footprint of the innermost axis must divide evenly into the new
// element size; packed kinds cannot be reinterpreted. Zero copy.
func (a *Array) CastView(to *dtype.DType) (*Array, error) {
	if a.dt.IsPacked() || to.IsPacked() {
		return nil, fmt.Errorf("%w: cast between %s and %s (packed kinds are opaque)", ErrIncompatibleCast, a.dt, to)
	}
	if !a.IsContiguous() {
		return nil, fmt.Errorf("%w: cast of strided array", shape.ErrNotContiguous)
	}
	if to == a.dt {
		return a.View()
	}

	newDims := a.dims.Clone()
	if a.dims.Rank() == 0 {
		if a.dt.ElemBytes() != to.ElemBytes() {
			return nil, fmt.Errorf("%w: scalar %s (%dB) to %s (%dB)",
				ErrIncompatibleCast, a.dt, a.dt.ElemBytes(), to, to.ElemBytes())
		}
	} else {
		last := a.dims.Rank() - 1
		rowBytes := a.dims[last] * a.dt.ElemBytes()
		if rowBytes%to.ElemBytes() != 0 {
			return nil, fmt.Errorf("%w: %d-byte rows of %s do not divide into %s elements",
				ErrIncompatibleCast, rowBytes, a.dt, to)
		}
		newDims[last] = rowBytes / to.ElemBytes()
	}

	out := &Array{
		dt:      to,
		dims:    newDims,
		strides: newDims.DefaultStrides(),
		offset:  a.offset,
		store:   a.store,
	}
	a.store.Retain()
	return out, nil
}
