// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gpudevice

import "errors"

// ErrAllocation names an allocation request that exceeds the device's
// capacity. No function in this module returns it: ProbeCapacity reports
// 0 when nothing can be granted, and ComputeMSM then keeps its
// configured batch size.
var ErrAllocation = errors.New("gpudevice: allocation request exceeds available capacity")

// ErrDispatch wraps a dispatched function's error to mark it as having
// failed inside the bounded in-flight semaphore, distinguishing a
// dispatch-stage failure from a decode or validation failure upstream.
var ErrDispatch = errors.New("gpudevice: dispatch failed")

// ErrDeviceUnavailable is returned when a caller asks for GPU dispatch in
// a build that cannot provide one (no cgo, no mlx backend). The MSM
// driver treats this as fatal rather than silently degrading an
// accelerated request to a CPU one.
var ErrDeviceUnavailable = errors.New("gpudevice: no GPU backend in this build")

// ErrGPUPathNotImplemented is returned when a caller asks for the bucketer
// or bucket-sum reducer to run on the GPU backend. A cgo+mlx Device is
// available for dispatch bookkeeping and the one primitive (BatchHistogram)
// that is genuinely wired through it, but no distinct mlx-accelerated
// bucketing or reduction kernel exists -- see DESIGN.md. Returned instead
// of silently running the CPU algorithm under a "gpu" label.
var ErrGPUPathNotImplemented = errors.New("gpudevice: no distinct gpu implementation for this stage")
