//go:build cgo

// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package gpudevice owns device/backend selection, batch-size clamping,
// and the cgo/non-cgo split the rest of the pipeline builds on, the Go
// analogue of the original's GpuDeviceQueue. This file is the mlx-backed
// implementation; device_stub.go is its non-cgo counterpart.
package gpudevice

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luxfi/log"
	"github.com/luxfi/mlx"
)

// Config mirrors gpu.Config/gpu.DefaultConfig from the sibling TFHE
// engine package, narrowed to what an MSM dispatch cycle needs.
type Config struct {
	// MaxInFlight bounds concurrent dispatches (default 4), the same
	// watchdog-avoidance knob as the original.
	MaxInFlight int
	// MaxBatchSize (default 2^20) and MaxInterBucketBatch (default 2^15)
	// are stored with the Device; no Device method reads them.
	MaxBatchSize        int
	MaxInterBucketBatch int
	// Logger receives stage-transition diagnostics; a nil Logger is
	// replaced by log.NewTestLogger(log.InfoLevel).
	Logger log.Logger
}

// DefaultConfig returns the distilled spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxInFlight:         4,
		MaxBatchSize:        1 << 20,
		MaxInterBucketBatch: 1 << 15,
		Logger:              log.NewTestLogger(log.InfoLevel),
	}
}

// Stats reports device capability and per-call bookkeeping, mirroring
// gpu.Stats/gpu.Engine.GetStats.
type Stats struct {
	Backend           string
	DeviceName        string
	DeviceMemory      uint64
	PointsProcessed   uint64
	WindowsProcessed  uint64
	BatchesDispatched uint64
}

// Device owns the mlx backend handle, the bounded in-flight semaphore,
// and an allocation mutex so concurrent MSM calls serialize buffer
// allocation on one physical device.
type Device struct {
	cfg     Config
	backend mlx.Backend
	device  *mlx.Device

	allocMu  sync.Mutex
	inFlight chan struct{}

	pointsProcessed   atomic.Uint64
	windowsProcessed  atomic.Uint64
	batchesDispatched atomic.Uint64
}

// NewDevice probes the active mlx backend and returns a ready Device.
func NewDevice(cfg Config) (*Device, error) {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewTestLogger(log.InfoLevel)
	}
	backend := mlx.GetBackend()
	device := mlx.GetDevice()
	cfg.Logger.Debug("gpudevice: initialized", "backend", fmt.Sprintf("%v", backend), "device", device.Name)
	return &Device{
		cfg:      cfg,
		backend:  backend,
		device:   device,
		inFlight: make(chan struct{}, cfg.MaxInFlight),
	}, nil
}

// ClampBatch returns the largest batch of the requested size that still
// respects the device's configured maximum, mirroring the original's
// min(len, limits.max_storage_buffer_binding_size, ...) clamp.
func (d *Device) ClampBatch(n, limit int) int {
	if limit <= 0 || n < limit {
		return n
	}
	return limit
}

// Dispatch runs fn under the bounded in-flight semaphore, blocking until
// one outstanding dispatch completes once MaxInFlight submissions are
// already active -- the Go analogue of polling on submission k-4 before
// submitting dispatch k. A non-nil error from fn is wrapped with
// ErrDispatch.
func (d *Device) Dispatch(fn func() error) error {
	d.inFlight <- struct{}{}
	defer func() { <-d.inFlight }()
	d.batchesDispatched.Add(1)
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	return nil
}

// Sync waits for all outstanding mlx work to complete.
func (d *Device) Sync() { mlx.Synchronize() }

// Available reports whether this build can actually drive a GPU backend.
func Available() bool { return true }

// BatchHistogram counts occurrences of each value in [0, numBuckets).
//
// The obvious mlx-accelerated version would compare the whole values
// array against every bucket index and reduce each comparison to a
// count, the same shape as addModArray/subModArray in gpu/ntt.go. But
// the comparison and reduction primitives that pattern depends on
// (Equal, a sum reduction) have no counterpart in this mlx build --
// gpu/mlx_ops.go ships Reshape, Slice, Take, Negative, Remainder,
// GreaterEqual, Where and friends as placeholders that return
// mlx.Zeros rather than a computed array, so composing a real
// reduction out of them would just be vectorized in name only. Rather
// than fabricate a call the backend can't actually honor, this stays a
// Go-side count; see DESIGN.md.
func (d *Device) BatchHistogram(values []uint32, numBuckets int) []uint32 {
	counts := make([]uint32, numBuckets)
	for _, v := range values {
		if int(v) < numBuckets {
			counts[v]++
		}
	}
	return counts
}

// ProbeCapacity searches for a contiguous allocation mlx will grant, the
// Go analogue of probe_max_vram: attempt an allocation of maxBytes, and
// halve on failure, recovering from the panic mlx raises on an
// out-of-memory request rather than returning an error value. It returns
// 0 once the size drops below 64 MiB without a successful allocation.
func (d *Device) ProbeCapacity(maxBytes uint64) (granted uint64) {
	size := maxBytes
	for size >= 64*1024*1024 {
		if d.tryAlloc(size) {
			return size
		}
		size /= 2
	}
	return 0
}

func (d *Device) tryAlloc(bytes uint64) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	n := int(bytes / 8)
	arr := mlx.Zeros([]int{n}, mlx.Int64)
	mlx.Eval(arr)
	ok = true
	return
}

// GetStats returns a snapshot of device capability and call bookkeeping.
func (d *Device) GetStats() Stats {
	return Stats{
		Backend:           fmt.Sprintf("%v", d.backend),
		DeviceName:        d.device.Name,
		DeviceMemory:      uint64(d.device.Memory),
		PointsProcessed:   d.pointsProcessed.Load(),
		WindowsProcessed:  d.windowsProcessed.Load(),
		BatchesDispatched: d.batchesDispatched.Load(),
	}
}

// NotePoints and NoteWindow update the bookkeeping counters surfaced by
// GetStats; callers (the MSM driver) invoke these as windows complete.
func (d *Device) NotePoints(n uint64)  { d.pointsProcessed.Add(n) }
func (d *Device) NoteWindow()          { d.windowsProcessed.Add(1) }
func (d *Device) Lock()                { d.allocMu.Lock() }
func (d *Device) Unlock()              { d.allocMu.Unlock() }
