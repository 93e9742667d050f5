// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package bridge hands arrays to host-side numeric libraries without
// copying. Outbound views hold a host-mapping lease on the array's
// storage; the storage refuses transfers until the view is closed.
// Inbound conversion always copies. Zero-element arrays cannot be
// exported; empty sources can still be imported.
package bridge

import (
	"github.com/pdevine/tensor"
	"gonum.org/v1/gonum/mat"

	"github.com/loom-ml/loom/internal/array"
	"github.com/loom-ml/loom/internal/bridge"
	"github.com/loom-ml/loom/internal/device"
)

// DenseView is a tensor.Dense sharing an array's host bytes.
type DenseView = bridge.DenseView

// MatrixView is a gonum matrix or vector sharing an array's host bytes.
type MatrixView = bridge.MatrixView

// AsDense exposes a contiguous, host-accessible array as a
// tensor.Dense. Close the view to release the lease.
func AsDense(a *array.Array) (*DenseView, error) {
	return bridge.AsDense(a)
}

// FromDense copies a tensor.Dense into a new host-resident array.
func FromDense(hostAlloc *device.HostAllocator, devAlloc device.Allocator, d *tensor.Dense) (*array.Array, error) {
	return bridge.FromDense(hostAlloc, devAlloc, d)
}

// AsMatrix exposes a rank-1 or rank-2 float64 array as a gonum
// matrix. Row-strided layouts are supported without copying.
func AsMatrix(a *array.Array) (*MatrixView, error) {
	return bridge.AsMatrix(a)
}

// FromMatrix copies a gonum matrix into a new host-resident array.
func FromMatrix(hostAlloc *device.HostAllocator, devAlloc device.Allocator, src mat.Matrix) (*array.Array, error) {
	return bridge.FromMatrix(hostAlloc, devAlloc, src)
}
