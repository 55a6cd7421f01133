// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package msm

import (
	"github.com/luxfi/log"
	"github.com/luxfi/msm-edwards/internal/reduce"
)

// BackendImpl selects the CPU or GPU implementation of a pipeline stage.
// Only the CPU path is implemented; ComputeMSM rejects BackendGPU.
type BackendImpl string

const (
	BackendCPU BackendImpl = "cpu"
	BackendGPU BackendImpl = "gpu"
)

// Config controls one ComputeMSM call. It carries no state across calls;
// ComputeMSM replaces every zero-valued field with DefaultConfig's value.
type Config struct {
	// WindowSize is W, one of scalarsplit.SupportedWindowSizes.
	WindowSize int

	// MaxInFlight bounds concurrent in-flight window dispatches against
	// the device, independent of the per-process goroutine cap.
	MaxInFlight int
	// MaxBatchSize bounds the batch size, in points, used when converting
	// the input points to Montgomery form. The intra-bucket reducers do
	// not split their work into batches.
	MaxBatchSize int
	// MaxInterBucketBatch is passed on to the device config; no stage
	// reads it, and the inter-bucket reduction runs over all buckets in
	// one pass.
	MaxInterBucketBatch int

	// BucketImpl selects the bucketer backend.
	BucketImpl BackendImpl
	// BucketSumImpl selects the intra/inter-bucket reducer backend.
	BucketSumImpl BackendImpl
	// IntraBucketStrategy selects between the segmented-scan and
	// pairwise-add-tree R1 algorithms, orthogonal to BucketSumImpl.
	IntraBucketStrategy reduce.IntraBucketStrategy

	// Logger receives stage-transition diagnostics. A nil Logger is
	// replaced by DefaultConfig's log.NewTestLogger(log.InfoLevel).
	Logger log.Logger
}

// DefaultConfig returns the documented defaults: window 16, CPU
// backends, segmented-scan intra-bucket reduction.
func DefaultConfig() Config {
	return Config{
		WindowSize:           16,
		MaxInFlight:          4,
		MaxBatchSize:         1 << 20,
		MaxInterBucketBatch:  1 << 15,
		BucketImpl:           BackendCPU,
		BucketSumImpl:        BackendCPU,
		IntraBucketStrategy:  reduce.StrategySegmentedScan,
		Logger:               log.NewTestLogger(log.InfoLevel),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.WindowSize == 0 {
		c.WindowSize = d.WindowSize
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = d.MaxInFlight
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.MaxInterBucketBatch <= 0 {
		c.MaxInterBucketBatch = d.MaxInterBucketBatch
	}
	if c.BucketImpl == "" {
		c.BucketImpl = d.BucketImpl
	}
	if c.BucketSumImpl == "" {
		c.BucketSumImpl = d.BucketSumImpl
	}
	if c.IntraBucketStrategy == "" {
		c.IntraBucketStrategy = d.IntraBucketStrategy
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
}
