package bridge

import (
	"fmt"
	"unsafe"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/loom-ml/loom/internal/array"
	"github.com/loom-ml/loom/internal/device"
	"github.com/loom-ml/loom/internal/dtype"
	"github.com/loom-ml/loom/internal/shape"
	"github.com/loom-ml/loom/internal/storage"
)

// MatrixView wraps a gonum matrix that borrows an Array's bytes. Valid
// until Close.
type MatrixView struct {
	Matrix  mat.Matrix
	mapping *storage.HostMapping
}

// Close releases the lease. The wrapped matrix must not be used after.
func (v *MatrixView) Close() {
	v.mapping.Close()
}

// AsMatrix exports a host-resident float64 array of rank 1 or 2 as a
// gonum matrix backed by the same bytes. Rank-2 arrays may be
// row-strided (a row slice or a row-aligned view); the inner stride
// must be 1. Rank-1 arrays may carry any positive stride.
func AsMatrix(a *array.Array) (*MatrixView, error) {
	if a.DType() != dtype.Float64 {
		return nil, fmt.Errorf("%w: matrix bridge carries float64, not %s", array.ErrIncompatibleCast, a.DType())
	}

	dims := a.Dims()
	strides := a.Strides()

	m, err := a.Storage().MapForHost()
	if err != nil {
		return nil, err
	}
	release := func(err error) (*MatrixView, error) {
		m.Close()
		return nil, err
	}

	host := m.Bytes()

	switch dims.Rank() {
	case 1:
		n, inc := dims[0], strides[0]
		if n == 0 {
			return release(fmt.Errorf("%w: matrix bridge does not carry empty vectors", array.ErrIncompatibleCast))
		}
		if inc < 1 {
			return release(fmt.Errorf("%w: vector bridge requires positive stride, got %d", shape.ErrNotContiguous, inc))
		}
		data := float64sAt(host, a.Offset(), (n-1)*inc+1)
		var v mat.VecDense
		v.SetRawVector(blas64.Vector{N: n, Inc: inc, Data: data})
		return &MatrixView{Matrix: &v, mapping: m}, nil
	case 2:
		rows, cols := dims[0], dims[1]
		if rows == 0 || cols == 0 {
			return release(fmt.Errorf("%w: matrix bridge does not carry empty matrices", array.ErrIncompatibleCast))
		}
		if strides[1] != 1 {
			return release(fmt.Errorf("%w: matrix bridge requires inner stride 1, got %d", shape.ErrNotContiguous, strides[1]))
		}
		stride := strides[0]
		if stride < cols {
			return release(fmt.Errorf("%w: row stride %d shorter than %d columns", shape.ErrNotContiguous, stride, cols))
		}
		data := float64sAt(host, a.Offset(), (rows-1)*stride+cols)
		var d mat.Dense
		d.SetRawMatrix(blas64.General{Rows: rows, Cols: cols, Stride: stride, Data: data})
		return &MatrixView{Matrix: &d, mapping: m}, nil
	default:
		return release(fmt.Errorf("%w: matrix bridge carries rank 1 or 2, got %d", array.ErrIncompatibleCast, dims.Rank()))
	}
}

// FromMatrix imports a gonum matrix into a freshly allocated
// host-resident float64 Array, copying the values. The source is not
// aliased.
func FromMatrix(hostAlloc *device.HostAllocator, devAlloc device.Allocator, src mat.Matrix) (*array.Array, error) {
	rows, cols := src.Dims()
	dims, err := shape.Make(rows, cols)
	if err != nil {
		return nil, err
	}
	a, err := array.New(hostAlloc, devAlloc, dtype.Float64, dims, storage.Host)
	if err != nil {
		return nil, err
	}
	dst, err := a.Float64s()
	if err != nil {
		a.Release()
		return nil, err
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[i*cols+j] = src.At(i, j)
		}
	}
	return a, nil
}

// float64sAt views n float64 values starting at byte off.
func float64sAt(host []byte, off, n int) []float64 {
	return unsafe.Slice((*float64)(unsafe.Pointer(&host[off])), n)
}
