// Package bridge exposes host-resident array memory to external numeric
// libraries without copying, and imports their values back by copy.
//
// Declared capabilities (an implementation-defined boundary, recorded
// here as part of the interface contract):
//
//   - Dense path (github.com/pdevine/tensor): contiguous arrays only;
//     dtypes float32, float64, int32, int64, uint8. Zero copy out.
//   - Matrix path (gonum.org/v1/gonum/mat): rank 1 and 2 float64
//     arrays; row-strided layouts are supported as long as the inner
//     stride is 1. Zero copy out.
//   - Import paths always copy into freshly allocated host Storage and
//     never alias externally owned memory.
//   - Zero-element arrays are outside both export paths and fail with
//     ErrIncompatibleCast; there are no bytes to lend.
//
// Every exported view holds a host-mapping lease on the Storage, so the
// Storage can neither transfer away from host nor be released while the
// view is open. Close the view as soon as host-side work is done.
package bridge

import (
	"fmt"
	"unsafe"

	"github.com/pdevine/tensor"

	"github.com/loom-ml/loom/internal/array"
	"github.com/loom-ml/loom/internal/device"
	"github.com/loom-ml/loom/internal/dtype"
	"github.com/loom-ml/loom/internal/shape"
	"github.com/loom-ml/loom/internal/storage"
)

// DenseView wraps a *tensor.Dense that borrows an Array's bytes. The
// dense tensor is valid until Close.
type DenseView struct {
	Dense   *tensor.Dense
	mapping *storage.HostMapping
}

// Close releases the lease. The wrapped tensor must not be used after.
func (v *DenseView) Close() {
	v.mapping.Close()
}

// AsDense exports a host-resident contiguous array as a dense tensor
// backed by the same bytes. Fails with ErrWrongResidency for
// device-only arrays and ErrNotContiguous for strided views.
func AsDense(a *array.Array) (*DenseView, error) {
	if !a.IsContiguous() {
		return nil, fmt.Errorf("%w: dense bridge requires default strides", shape.ErrNotContiguous)
	}
	if a.ElementCount() == 0 {
		return nil, fmt.Errorf("%w: dense bridge does not carry empty arrays", array.ErrIncompatibleCast)
	}

	m, err := a.Storage().MapForHost()
	if err != nil {
		return nil, err
	}

	var backing interface{}
	switch a.DType() {
	case dtype.Float32:
		backing, err = a.Float32s()
	case dtype.Float64:
		backing, err = a.Float64s()
	case dtype.Int32:
		backing, err = a.Int32s()
	case dtype.Int64:
		backing, err = a.Int64s()
	case dtype.Uint8:
		backing, err = a.Uint8s()
	default:
		err = fmt.Errorf("%w: dense bridge does not carry %s", array.ErrIncompatibleCast, a.DType())
	}
	if err != nil {
		m.Close()
		return nil, err
	}

	dims := a.Dims()
	if dims.Rank() == 0 {
		// Scalars surface as 1-element vectors; the dense library has no
		// zero-copy scalar construction.
		dims = shape.Dims{1}
	}
	d := tensor.New(tensor.WithShape([]int(dims)...), tensor.WithBacking(backing))
	return &DenseView{Dense: d, mapping: m}, nil
}

// FromDense imports a dense tensor into a freshly allocated
// host-resident Array, copying the bytes. The source is not aliased.
func FromDense(hostAlloc *device.HostAllocator, devAlloc device.Allocator, d *tensor.Dense) (*array.Array, error) {
	dims, err := shape.Make(d.Shape()...)
	if err != nil {
		return nil, err
	}

	var (
		dt  *dtype.DType
		raw []byte
	)
	switch data := d.Data().(type) {
	case []float32:
		dt, raw = dtype.Float32, sliceBytes(data, 4)
	case []float64:
		dt, raw = dtype.Float64, sliceBytes(data, 8)
	case []int32:
		dt, raw = dtype.Int32, sliceBytes(data, 4)
	case []int64:
		dt, raw = dtype.Int64, sliceBytes(data, 8)
	case []uint8:
		dt, raw = dtype.Uint8, data
	case float32:
		dt, raw, dims = dtype.Float32, sliceBytes([]float32{data}, 4), shape.Dims{}
	case float64:
		dt, raw, dims = dtype.Float64, sliceBytes([]float64{data}, 8), shape.Dims{}
	default:
		return nil, fmt.Errorf("%w: dense bridge does not carry %T", array.ErrIncompatibleCast, data)
	}

	return array.FromBytes(hostAlloc, devAlloc, dt, raw, dims)
}

// sliceBytes views a numeric slice as its underlying bytes.
func sliceBytes[T any](s []T, elemSize int) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*elemSize)
}
