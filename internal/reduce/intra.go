// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package reduce implements the intra-bucket (R1) and inter-bucket (R2)
// reduction stages of the Pippenger pipeline.
package reduce

import (
	"sync"

	"github.com/luxfi/msm-edwards/internal/bucket"
	"github.com/luxfi/msm-edwards/internal/curve"
)

// IntraBucketStrategy selects between the two interchangeable R1
// algorithms described by the distilled spec; this axis is orthogonal
// to the CPU/GPU backend selection.
type IntraBucketStrategy string

const (
	// StrategySegmentedScan is the default: one sequential scan per
	// contiguous bucket segment.
	StrategySegmentedScan IntraBucketStrategy = "segmented"
	// StrategyPairwiseTree builds an explicit pairwise-add schedule,
	// exposing wider parallelism for large buckets.
	StrategyPairwiseTree IntraBucketStrategy = "pairwise"
)

// SegmentedScan reduces res.Reshuffled into a per-natural-bucket sum
// array by walking each contiguous, size-ordered bucket segment with one
// goroutine, preserving the single-writer-per-segment invariant the
// original GPU kernel assumes: a segment is never split across workers,
// so no two goroutines ever write the same bucket's result.
func SegmentedScan(res bucket.Result) []curve.Point {
	sums := make([]curve.Point, res.NumBuckets)
	for i := range sums {
		sums[i] = curve.Zero()
	}

	var wg sync.WaitGroup
	start := uint32(0)
	for i, end := range res.BucketShuffled {
		bkt := res.IdxToBkt[i]
		if end > start {
			wg.Add(1)
			go func(bkt, start, end uint32) {
				defer wg.Done()
				acc := res.Reshuffled[start]
				for j := start + 1; j < end; j++ {
					acc = curve.Add(acc, res.Reshuffled[j])
				}
				sums[bkt] = acc
			}(bkt, start, end)
		}
		start = end
	}
	wg.Wait()
	return sums
}

// paddIndices is one level of the pairwise-add schedule: an instruction
// to add in1 and in2 (or treat in2 as zero when it equals
// PaddIndexNoInput2) and write the result to out, where out's high bit
// set (PaddIndexOutputToBucket) means "write directly to the per-bucket
// result array" rather than to a ping-pong scratch slot.
//
// The sentinels match the original GPU buffer encoding bit-for-bit so a
// dumped schedule stays wire-compatible; note the high-bit sentinel
// collides with a literal scratch index once scratch exceeds 2^31
// entries, which is inert for n <= 2^20 and is not otherwise guarded.
type paddIndices struct {
	in1, in2, out uint32
}

const (
	// PaddIndexNoInput2 marks a pairwise-add record whose second operand
	// is absent (treat as the neutral element).
	PaddIndexNoInput2 = 0xFFFFFFFF
	// PaddIndexOutputToBucket is OR'd into out to mean "this is the
	// final result for the bucket identified by out&^PaddIndexOutputToBucket".
	PaddIndexOutputToBucket = 0x80000000
)

// PairwiseTree reduces res.Reshuffled into a per-natural-bucket sum
// array via repeated levels of pairwise addition, each level encoded as
// an explicit schedule of paddIndices records, terminating once every
// bucket has collapsed to at most one live element. Buckets are reduced
// one after another on the calling goroutine.
func PairwiseTree(res bucket.Result) []curve.Point {
	sums := make([]curve.Point, res.NumBuckets)
	for i := range sums {
		sums[i] = curve.Zero()
	}

	start := uint32(0)
	for i, end := range res.BucketShuffled {
		bkt := res.IdxToBkt[i]
		segLen := end - start
		if segLen > 0 {
			sums[bkt] = reducePairwise(res.Reshuffled[start:end])
		}
		start = end
	}
	return sums
}

// reducePairwise collapses a single bucket's points into one sum by
// repeatedly building a pairwise-add schedule and applying it, writing
// each level's results into a newly allocated slice; no scratch buffers
// are reused between levels.
func reducePairwise(points []curve.Point) curve.Point {
	cur := make([]curve.Point, len(points))
	copy(cur, points)

	for len(cur) > 1 {
		next := make([]curve.Point, 0, (len(cur)+1)/2)
		schedule := computeNextLevel(uint32(len(cur)))
		for _, rec := range schedule {
			var a curve.Point
			if rec.in1 != PaddIndexNoInput2 {
				a = cur[rec.in1]
			} else {
				a = curve.Zero()
			}
			var b curve.Point
			if rec.in2 != PaddIndexNoInput2 {
				b = cur[rec.in2]
			} else {
				b = curve.Zero()
			}
			sum := curve.Add(a, b)
			if rec.out&PaddIndexOutputToBucket != 0 {
				return sum
			}
			next = append(next, sum)
		}
		cur = next
	}
	return cur[0]
}

// computeNextLevel builds the pairwise-add schedule for a scratch region
// of length n: pairs (2k, 2k+1), with an unpaired tail carried through
// via PaddIndexNoInput2. The final record of the final level (n==2) is
// marked PaddIndexOutputToBucket.
func computeNextLevel(n uint32) []paddIndices {
	out := make([]paddIndices, 0, (n+1)/2)
	finalLevel := n <= 2
	var outIdx uint32
	for i := uint32(0); i < n; i += 2 {
		rec := paddIndices{in1: i, in2: PaddIndexNoInput2, out: outIdx}
		if i+1 < n {
			rec.in2 = i + 1
		}
		if finalLevel {
			rec.out = PaddIndexOutputToBucket
		}
		out = append(out, rec)
		outIdx++
	}
	return out
}
