// Package webgpu implements the device allocator over WebGPU storage
// buffers. It owns the instance/adapter/device/queue bring-up and moves
// bytes with queue writes and staging-buffer readbacks; it runs no
// compute of its own.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"

	"github.com/loom-ml/loom/internal/device"
)

// Allocator allocates wgpu storage buffers. Create one per process (or
// per adapter) and share it across Storages.
type Allocator struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	log      zerolog.Logger

	mu          sync.Mutex
	activeBytes int64
}

// Option configures the allocator.
type Option func(*Allocator)

// WithLogger attaches a logger; silent by default.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Allocator) { a.log = l }
}

// New brings up a WebGPU device and returns an allocator bound to its
// default queue. Returns an error if no adapter or device is available,
// including when the native library itself is missing.
func New(opts ...Option) (alloc *Allocator, err error) {
	// The native loader panics when wgpu_native is absent.
	defer func() {
		if r := recover(); r != nil {
			alloc = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	dev, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := dev.GetQueue()
	if queue == nil {
		dev.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	a := &Allocator{
		instance: instance,
		adapter:  adapter,
		device:   dev,
		queue:    queue,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Name identifies the allocator.
func (a *Allocator) Name() string {
	return "webgpu"
}

// Allocate creates a storage buffer of n bytes, padded to the 4-byte
// alignment WebGPU requires. The logical length stays n.
func (a *Allocator) Allocate(n int) (device.Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", device.ErrAllocationFailed, n)
	}
	aligned := uint64((n + 3) &^ 3)
	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "loom-storage",
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  aligned,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrAllocationFailed, err)
	}

	a.mu.Lock()
	a.activeBytes += int64(aligned)
	a.mu.Unlock()
	a.log.Debug().Int("bytes", n).Msg("webgpu alloc")

	return &gpuBuffer{buf: buf, size: n, aligned: aligned, owner: a}, nil
}

// ActiveBytes returns the bytes currently allocated on the device.
func (a *Allocator) ActiveBytes() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeBytes
}

// Release tears down the queue, device, adapter, and instance.
// Buffers must be released first.
func (a *Allocator) Release() {
	if a.queue != nil {
		a.queue.Release()
		a.queue = nil
	}
	if a.device != nil {
		a.device.Release()
		a.device = nil
	}
	if a.adapter != nil {
		a.adapter.Release()
		a.adapter = nil
	}
	if a.instance != nil {
		a.instance.Release()
		a.instance = nil
	}
}

type gpuBuffer struct {
	buf     *wgpu.Buffer
	size    int
	aligned uint64
	owner   *Allocator
}

func (g *gpuBuffer) Len() int {
	return g.size
}

func (g *gpuBuffer) Upload(off int, src []byte) error {
	if off < 0 || off+len(src) > g.size {
		return fmt.Errorf("webgpu: upload range [%d,%d) outside buffer of %d bytes", off, off+len(src), g.size)
	}
	if err := g.owner.queue.WriteBuffer(g.buf, uint64(off), src); err != nil {
		return fmt.Errorf("webgpu: write buffer: %w", err)
	}
	return nil
}

// Download copies bytes back through a MapRead staging buffer, since
// storage buffers cannot be mapped directly.
func (g *gpuBuffer) Download(off int, dst []byte) error {
	if off < 0 || off+len(dst) > g.size {
		return fmt.Errorf("webgpu: download range [%d,%d) outside buffer of %d bytes", off, off+len(dst), g.size)
	}
	size := uint64((len(dst) + 3) &^ 3)

	staging, err := g.owner.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "loom-staging",
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if err != nil {
		return fmt.Errorf("webgpu: create staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := g.owner.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: create command encoder: %w", err)
	}
	if err := encoder.CopyBufferToBuffer(g.buf, uint64(off), staging, 0, size); err != nil {
		return fmt.Errorf("webgpu: copy to staging: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("webgpu: finish encoder: %w", err)
	}
	g.owner.queue.Submit(cmd)

	done := false
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done = status == wgpu.BufferMapAsyncStatusSuccess
	}); err != nil {
		return fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	g.owner.device.Poll(true, nil)
	if !done {
		return fmt.Errorf("webgpu: staging buffer map did not complete")
	}
	defer staging.Unmap()

	copy(dst, staging.GetMappedRange(0, uint(size)))
	return nil
}

func (g *gpuBuffer) Release() {
	if g.buf == nil {
		return
	}
	g.buf.Release()
	g.buf = nil

	g.owner.mu.Lock()
	g.owner.activeBytes -= int64(g.aligned)
	g.owner.mu.Unlock()
}
