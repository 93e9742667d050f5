// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package array

import (
	"github.com/loom-ml/loom/internal/array"
	"github.com/loom-ml/loom/internal/device"
	"github.com/loom-ml/loom/internal/dtype"
	"github.com/loom-ml/loom/internal/shape"
	"github.com/loom-ml/loom/internal/storage"
)

// Array is a typed multi-dimensional view over reference-counted
// storage. See the package documentation for the ownership model.
type Array = array.Array

// Range selects [Start, Stop) along one axis when building a view.
type Range = array.Range

// Full marks a range that keeps the whole axis.
var Full = array.Full

// Dims holds per-axis extents. An extent of Dynamic is a placeholder
// that must be bound before allocation.
type Dims = shape.Dims

// Dynamic marks an axis whose extent is not yet known.
const Dynamic = shape.Dynamic

// MakeDims validates extents and returns them as Dims.
func MakeDims(extents ...int) (Dims, error) {
	return shape.Make(extents...)
}

// DType describes one element kind. Descriptors are immutable
// singletons; compare them by pointer identity.
type DType = dtype.DType

// Registry maps canonical dtype names to descriptors.
type Registry = dtype.Registry

// NewRegistry returns a registry pre-populated with the built-in kinds.
func NewRegistry() *Registry {
	return dtype.NewRegistry()
}

// NewScalarDType builds a descriptor for a custom scalar kind.
func NewScalarDType(name string, bits int) *DType {
	return dtype.NewScalar(name, bits)
}

// NewBlockDType builds a descriptor for a custom block-encoded kind.
func NewBlockDType(name string, bits, blockSize, blockBytes int) *DType {
	return dtype.NewBlock(name, bits, blockSize, blockBytes)
}

// DefaultRegistry is the process-wide dtype registry.
var DefaultRegistry = dtype.Default

// Built-in element kinds.
var (
	Bool       = dtype.Bool
	Int8       = dtype.Int8
	Int16      = dtype.Int16
	Int32      = dtype.Int32
	Int64      = dtype.Int64
	Uint8      = dtype.Uint8
	Uint16     = dtype.Uint16
	Uint32     = dtype.Uint32
	Uint64     = dtype.Uint64
	Float16    = dtype.Float16
	BFloat16   = dtype.BFloat16
	Float32    = dtype.Float32
	Float64    = dtype.Float64
	Complex64  = dtype.Complex64
	Complex128 = dtype.Complex128
	Opaque     = dtype.Opaque
	Int4       = dtype.Int4
	Q4_0       = dtype.Q4_0
	Q8_0       = dtype.Q8_0
	Q4_K       = dtype.Q4_K
	Q6_K       = dtype.Q6_K
)

// Storage is the byte-level backing of one or more arrays.
type Storage = storage.Storage

// HostMapping is a lease on a Storage's host bytes. While any mapping
// is open the Storage refuses transfers.
type HostMapping = storage.HostMapping

// Residency names where a Storage's bytes live.
type Residency = storage.Residency

// Residency states.
const (
	Host       = storage.Host
	Device     = storage.Device
	HostDevice = storage.HostDevice
)

// Error taxonomy. Match with errors.Is.
var (
	ErrInvalidShape       = shape.ErrInvalidShape
	ErrShapeMismatch      = shape.ErrShapeMismatch
	ErrNotContiguous      = shape.ErrNotContiguous
	ErrUnknownDType       = dtype.ErrUnknownDType
	ErrInvalidPacking     = dtype.ErrInvalidPacking
	ErrAllocationFailed   = device.ErrAllocationFailed
	ErrTransferFailed     = storage.ErrTransferFailed
	ErrWrongResidency     = storage.ErrWrongResidency
	ErrStorageLeased      = storage.ErrStorageLeased
	ErrOutOfBounds        = array.ErrOutOfBounds
	ErrInvalidPermutation = array.ErrInvalidPermutation
	ErrIncompatibleCast   = array.ErrIncompatibleCast
)

// New allocates a fresh Storage in the given residency and wraps it in
// an owning Array with default strides.
func New(hostAlloc *device.HostAllocator, devAlloc device.Allocator, dt *DType, dims Dims, res Residency) (*Array, error) {
	return array.New(hostAlloc, devAlloc, dt, dims, res)
}

// Wrap builds an Array over an existing Storage, retaining it.
func Wrap(dt *DType, dims Dims, strides []int, offset int, store *Storage) (*Array, error) {
	return array.Wrap(dt, dims, strides, offset, store)
}

// FromFloat32s allocates a host-resident float32 array and copies vals
// into it.
func FromFloat32s(hostAlloc *device.HostAllocator, devAlloc device.Allocator, vals []float32, dims Dims) (*Array, error) {
	return array.FromFloat32s(hostAlloc, devAlloc, vals, dims)
}

// FromBytes allocates a host-resident array of the given dtype and dims
// and copies raw bytes into it.
func FromBytes(hostAlloc *device.HostAllocator, devAlloc device.Allocator, dt *DType, raw []byte, dims Dims) (*Array, error) {
	return array.FromBytes(hostAlloc, devAlloc, dt, raw, dims)
}
