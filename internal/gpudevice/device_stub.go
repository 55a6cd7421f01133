//go:build !cgo

// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package gpudevice owns device/backend selection, batch-size clamping,
// and the cgo/non-cgo split the rest of the pipeline builds on. This file
// is the non-cgo fallback: it has no mlx dependency and runs the whole
// pipeline as bounded-concurrency CPU work.
package gpudevice

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/luxfi/log"
)

// Available reports whether this build can actually drive a GPU backend.
func Available() bool { return false }

type Config struct {
	MaxInFlight          int
	MaxBatchSize         int
	MaxInterBucketBatch  int
	Logger               log.Logger
}

func DefaultConfig() Config {
	return Config{
		MaxInFlight:         4,
		MaxBatchSize:        1 << 20,
		MaxInterBucketBatch: 1 << 15,
		Logger:              log.NewTestLogger(log.InfoLevel),
	}
}

type Stats struct {
	Backend           string
	DeviceName        string
	DeviceMemory      uint64
	PointsProcessed   uint64
	WindowsProcessed  uint64
	BatchesDispatched uint64
}

// Device is the CPU-only stand-in used when the module is built without
// cgo: it keeps the same bounded-dispatch and bookkeeping surface as the
// mlx-backed Device, minus anything that depends on mlx.
type Device struct {
	cfg Config

	allocMu  sync.Mutex
	inFlight chan struct{}

	pointsProcessed   atomic.Uint64
	windowsProcessed  atomic.Uint64
	batchesDispatched atomic.Uint64
}

// NewDevice always succeeds in a non-cgo build: the caller gets a
// CPU-backed Device rather than an error, since "no mlx" does not mean
// "cannot run an MSM," only "cannot accelerate one." Callers that
// specifically require GPU dispatch (rather than just a Device) should
// check GetStats().Backend and fail on ErrDeviceUnavailable themselves.
func NewDevice(cfg Config) (*Device, error) {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewTestLogger(log.InfoLevel)
	}
	cfg.Logger.Debug("gpudevice: initialized", "backend", "cpu")
	return &Device{
		cfg:      cfg,
		inFlight: make(chan struct{}, cfg.MaxInFlight),
	}, nil
}

func (d *Device) ClampBatch(n, limit int) int {
	if limit <= 0 || n < limit {
		return n
	}
	return limit
}

func (d *Device) Dispatch(fn func() error) error {
	d.inFlight <- struct{}{}
	defer func() { <-d.inFlight }()
	d.batchesDispatched.Add(1)
	if err := fn(); err != nil {
		return fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	return nil
}

// Sync is a no-op: there is no async backend to drain.
func (d *Device) Sync() {}

// BatchHistogram counts occurrences of each value in [0, numBuckets),
// identical in behavior to the cgo build's version (which does not
// actually vectorize this either; see device.go).
func (d *Device) BatchHistogram(values []uint32, numBuckets int) []uint32 {
	counts := make([]uint32, numBuckets)
	for _, v := range values {
		if int(v) < numBuckets {
			counts[v]++
		}
	}
	return counts
}

// ProbeCapacity always reports zero: there is no device VRAM to probe.
func (d *Device) ProbeCapacity(maxBytes uint64) uint64 { return 0 }

func (d *Device) GetStats() Stats {
	return Stats{
		Backend:           "cpu",
		DeviceName:        "cpu-fallback",
		PointsProcessed:   d.pointsProcessed.Load(),
		WindowsProcessed:  d.windowsProcessed.Load(),
		BatchesDispatched: d.batchesDispatched.Load(),
	}
}

func (d *Device) NotePoints(n uint64) { d.pointsProcessed.Add(n) }
func (d *Device) NoteWindow()         { d.windowsProcessed.Add(1) }
func (d *Device) Lock()               { d.allocMu.Lock() }
func (d *Device) Unlock()             { d.allocMu.Unlock() }
