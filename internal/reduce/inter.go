// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package reduce

import "github.com/luxfi/msm-edwards/internal/curve"

// InterBucketBatchLimit is the per-dispatch point limit for a batched
// inter-bucket reduction (2^15, matching the original). This package has
// no batched or GPU inter-bucket path, and InterBucketReduce does not
// read this constant.
const InterBucketBatchLimit = 1 << 15

// InterBucketReduce computes sum_{i=1}^{N_B-1} i * buckets[i] via the
// Pippenger double-running-sum trick: a running carry accumulates
// buckets from the top down, and a running sum accumulates the carry at
// every step.
//
// It is the only inter-bucket reducer in this module: it runs on the
// CPU over all buckets in one pass, without batching.
func InterBucketReduce(buckets []curve.Point) curve.Point {
	sum := curve.Zero()
	carry := curve.Zero()
	for i := len(buckets) - 1; i >= 1; i-- {
		carry = curve.Add(carry, buckets[i])
		sum = curve.Add(sum, carry)
	}
	return sum
}
