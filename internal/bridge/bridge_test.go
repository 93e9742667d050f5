package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/pdevine/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/loom-ml/loom/internal/array"
	"github.com/loom-ml/loom/internal/device"
	"github.com/loom-ml/loom/internal/dtype"
	"github.com/loom-ml/loom/internal/shape"
	"github.com/loom-ml/loom/internal/storage"
)

type env struct {
	host *device.HostAllocator
	dev  *device.Mock
}

func newEnv() *env {
	return &env{host: device.NewHost(), dev: device.NewMock()}
}

func (e *env) float32Array(t *testing.T, vals []float32, extents ...int) *array.Array {
	t.Helper()
	dims, err := shape.Make(extents...)
	require.NoError(t, err)
	a, err := array.FromFloat32s(e.host, e.dev, vals, dims)
	require.NoError(t, err)
	return a
}

func (e *env) float64Array(t *testing.T, vals []float64, extents ...int) *array.Array {
	t.Helper()
	dims, err := shape.Make(extents...)
	require.NoError(t, err)
	a, err := array.New(e.host, e.dev, dtype.Float64, dims, storage.Host)
	require.NoError(t, err)
	dst, err := a.Float64s()
	require.NoError(t, err)
	copy(dst, vals)
	return a
}

func TestDenseRoundTrip(t *testing.T) {
	e := newEnv()
	a := e.float32Array(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	defer a.Release()

	v, err := AsDense(a)
	require.NoError(t, err)
	assert.True(t, v.Dense.Shape().Eq(tensor.Shape{2, 3}))
	v.Close()

	v, err = AsDense(a)
	require.NoError(t, err)
	back, err := FromDense(e.host, e.dev, v.Dense)
	v.Close()
	require.NoError(t, err)
	defer back.Release()

	want := make([]byte, a.ByteSize())
	got := make([]byte, back.ByteSize())
	require.NoError(t, a.ReadBytes(want))
	require.NoError(t, back.ReadBytes(got))
	assert.Equal(t, want, got)
	assert.Equal(t, a.Dims(), back.Dims())
	assert.Equal(t, dtype.Float32, back.DType())
	assert.NotSame(t, a.Storage(), back.Storage())
}

func TestDenseIsZeroCopy(t *testing.T) {
	e := newEnv()
	a := e.float32Array(t, []float32{1, 2, 3, 4}, 4)
	defer a.Release()

	v, err := AsDense(a)
	require.NoError(t, err)
	defer v.Close()

	// Writes through the dense view land in the array's bytes.
	backing := v.Dense.Data().([]float32)
	backing[0] = 42

	f32s, err := a.Float32s()
	require.NoError(t, err)
	assert.Equal(t, float32(42), f32s[0])
}

func TestDenseViewLeaseExcludesTransfer(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a := e.float32Array(t, []float32{1, 2}, 2)
	defer a.Release()

	v, err := AsDense(a)
	require.NoError(t, err)

	err = a.TransferTo(ctx, storage.Device)
	assert.True(t, errors.Is(err, storage.ErrStorageLeased))

	v.Close()
	require.NoError(t, a.TransferTo(ctx, storage.Device))
}

func TestDenseRejectsStridedAndDeviceArrays(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	a := e.float32Array(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	defer a.Release()

	tr, err := a.Transpose()
	require.NoError(t, err)
	defer tr.Release()
	_, err = AsDense(tr)
	assert.True(t, errors.Is(err, shape.ErrNotContiguous))

	require.NoError(t, a.TransferTo(ctx, storage.Device))
	_, err = AsDense(a)
	assert.True(t, errors.Is(err, storage.ErrWrongResidency))
	assert.Equal(t, 0, a.Storage().Leases())
}

func TestDenseRejectsPackedKinds(t *testing.T) {
	e := newEnv()
	dims, _ := shape.Make(32)
	a, err := array.New(e.host, e.dev, dtype.Q4_0, dims, storage.Host)
	require.NoError(t, err)
	defer a.Release()

	_, err = AsDense(a)
	assert.True(t, errors.Is(err, array.ErrIncompatibleCast))
	assert.Equal(t, 0, a.Storage().Leases())
}

func TestBridgeRejectsEmptyArrays(t *testing.T) {
	e := newEnv()

	empty32 := e.float32Array(t, nil, 0)
	defer empty32.Release()
	_, err := AsDense(empty32)
	assert.True(t, errors.Is(err, array.ErrIncompatibleCast))
	assert.Equal(t, 0, empty32.Storage().Leases())

	dims, _ := shape.Make(0, 2)
	empty64, err := array.New(e.host, e.dev, dtype.Float64, dims, storage.Host)
	require.NoError(t, err)
	defer empty64.Release()
	_, err = AsMatrix(empty64)
	assert.True(t, errors.Is(err, array.ErrIncompatibleCast))
	assert.Equal(t, 0, empty64.Storage().Leases())

	vec, err := array.New(e.host, e.dev, dtype.Float64, shape.Dims{0}, storage.Host)
	require.NoError(t, err)
	defer vec.Release()
	_, err = AsMatrix(vec)
	assert.True(t, errors.Is(err, array.ErrIncompatibleCast))
	assert.Equal(t, 0, vec.Storage().Leases())
}

func TestMatrixContiguous(t *testing.T) {
	e := newEnv()
	a := e.float64Array(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	defer a.Release()

	v, err := AsMatrix(a)
	require.NoError(t, err)
	defer v.Close()

	r, c := v.Matrix.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 6.0, v.Matrix.At(1, 2))
}

func TestMatrixRowStridedView(t *testing.T) {
	e := newEnv()
	a := e.float64Array(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 3, 3)
	defer a.Release()

	// Rows [1:3): a row-strided window sharing the storage.
	w, err := a.View(array.Range{Start: 1, Stop: 3})
	require.NoError(t, err)
	defer w.Release()

	v, err := AsMatrix(w)
	require.NoError(t, err)
	defer v.Close()

	assert.Equal(t, 4.0, v.Matrix.At(0, 0))
	assert.Equal(t, 9.0, v.Matrix.At(1, 2))
}

func TestMatrixVectorWithStride(t *testing.T) {
	e := newEnv()
	a := e.float64Array(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)
	defer a.Release()

	// Column 1 as a stride-3 vector over the same storage.
	vec, err := array.Wrap(dtype.Float64, shape.Dims{2}, []int{3}, 8, a.Storage())
	require.NoError(t, err)
	defer vec.Release()

	v, err := AsMatrix(vec)
	require.NoError(t, err)
	defer v.Close()

	r, c := v.Matrix.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, 2.0, v.Matrix.At(0, 0))
	assert.Equal(t, 5.0, v.Matrix.At(1, 0))
}

func TestMatrixRejectsInnerStride(t *testing.T) {
	e := newEnv()
	a := e.float64Array(t, make([]float64, 6), 2, 3)
	defer a.Release()

	tr, err := a.Transpose()
	require.NoError(t, err)
	defer tr.Release()

	_, err = AsMatrix(tr)
	assert.True(t, errors.Is(err, shape.ErrNotContiguous))
	assert.Equal(t, 0, a.Storage().Leases())
}

func TestMatrixRejectsWrongDTypeAndRank(t *testing.T) {
	e := newEnv()
	f32 := e.float32Array(t, make([]float32, 4), 4)
	defer f32.Release()
	_, err := AsMatrix(f32)
	assert.True(t, errors.Is(err, array.ErrIncompatibleCast))

	cube := e.float64Array(t, make([]float64, 8), 2, 2, 2)
	defer cube.Release()
	_, err = AsMatrix(cube)
	assert.True(t, errors.Is(err, array.ErrIncompatibleCast))
}

func TestFromMatrixCopies(t *testing.T) {
	e := newEnv()
	src := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	a, err := FromMatrix(e.host, e.dev, src)
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, shape.Dims{2, 2}, a.Dims())
	vals, err := a.Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, vals)

	// Mutating the source after import must not affect the array.
	src.Set(0, 0, 99)
	assert.Equal(t, 1.0, vals[0])
}
