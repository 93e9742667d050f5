// Copyright 2026 Loom ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides a device allocator backed by a WebGPU
// adapter. It requires the wgpu native library at runtime.
package webgpu

import (
	"github.com/rs/zerolog"

	"github.com/loom-ml/loom/internal/device"
	internalwebgpu "github.com/loom-ml/loom/internal/device/webgpu"
)

// Allocator allocates storage buffers on a WebGPU device.
type Allocator = internalwebgpu.Allocator

// Option configures the allocator during bring-up.
type Option = internalwebgpu.Option

var _ device.Allocator = (*Allocator)(nil)

// New brings up a WebGPU instance, adapter, and device, and returns an
// allocator over its queue.
func New(opts ...Option) (*Allocator, error) {
	return internalwebgpu.New(opts...)
}

// WithLogger routes bring-up and allocation logging through l.
func WithLogger(l zerolog.Logger) Option {
	return internalwebgpu.WithLogger(l)
}
