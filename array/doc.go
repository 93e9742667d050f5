// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package array is the public surface of the Loom device array core: a
// typed, multi-dimensional array backed by reference-counted storage
// that may live in host memory, device memory, or both.
//
// # Overview
//
// An Array composes three independently varying pieces:
//   - a DType describing the element kind and its binary layout,
//   - Dims describing rank and per-axis extents,
//   - a Storage holding the bytes in one or both residencies.
//
// Views, reshapes, and transposes are metadata operations sharing the
// same Storage with zero bytes copied; Clone always materializes a new
// Storage. Residency moves only through explicit transfers.
//
// # Basic Usage
//
//	import (
//	    "github.com/loom-ml/loom/array"
//	    "github.com/loom-ml/loom/device"
//	)
//
//	host := device.NewHost()
//	dev := device.NewMock() // or webgpu.New()
//
//	dims, _ := array.MakeDims(2, 3)
//	a, _ := array.New(host, dev, array.Float32, dims, array.Host)
//	defer a.Release()
//
//	vals, _ := a.Float32s()
//	copy(vals, []float32{1, 2, 3, 4, 5, 6})
//
//	row, _ := a.View(array.Range{Start: 1, Stop: 2})
//	defer row.Release()
//
// Every operation that can fail returns an error from the closed
// taxonomy in this package; callers are expected to handle each kind
// explicitly. Nothing copies, coerces, or truncates implicitly.
package array
