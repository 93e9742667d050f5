// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package device exposes the allocator surface arrays allocate
// through: a pooled host allocator, a mock device for tests, and (via
// the webgpu subpackage) a real GPU-backed allocator.
package device

import (
	"github.com/rs/zerolog"

	"github.com/loom-ml/loom/internal/device"
)

// Allocator hands out device buffers.
type Allocator = device.Allocator

// Buffer is one device allocation with explicit upload/download.
type Buffer = device.Buffer

// HostAllocator is a size-pooled allocator for host byte slices.
type HostAllocator = device.HostAllocator

// HostOption configures a HostAllocator.
type HostOption = device.HostOption

// Mock is an in-memory Allocator with failure injection, for tests.
type Mock = device.Mock

// ErrAllocationFailed is returned when an allocator cannot satisfy a
// request.
var ErrAllocationFailed = device.ErrAllocationFailed

// NewHost returns a pooled host allocator.
func NewHost(opts ...HostOption) *HostAllocator {
	return device.NewHost(opts...)
}

// WithCapacity caps the total bytes a HostAllocator will hand out.
func WithCapacity(bytes int) HostOption {
	return device.WithCapacity(bytes)
}

// WithLogger routes allocator debug logging through l.
func WithLogger(l zerolog.Logger) HostOption {
	return device.WithLogger(l)
}

// NewMock returns an in-memory device allocator.
func NewMock() *Mock {
	return device.NewMock()
}
