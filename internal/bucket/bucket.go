// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package bucket implements the Pippenger bucketer: partitioning
// (scalar_window, point) pairs into buckets indexed by window value,
// producing a packed, size-ordered reshuffled input and a bucket-offset
// map the intra-bucket reducer consumes.
package bucket

import (
	"sort"

	"github.com/luxfi/msm-edwards/internal/curve"
	"github.com/luxfi/msm-edwards/internal/gpudevice"
)

// Result is the per-window output of Build.
type Result struct {
	// NumBuckets is 2^W.
	NumBuckets int
	// IdxToBkt is a permutation of [0, NumBuckets) ordering buckets by size.
	IdxToBkt []uint32
	// BucketShuffled[i] is the exclusive-cumulative size of buckets
	// IdxToBkt[0..i+1] -- i.e. the inclusive end, in reshuffled order, of
	// bucket IdxToBkt[i].
	BucketShuffled []uint32
	// Reshuffled is the concatenation, in IdxToBkt order, of every input
	// point whose window value is non-zero.
	Reshuffled []curve.Point
}

// Build partitions points by their corresponding window value (one
// value per point, in windowValues), forcing bucket 0 to be ignored.
// dev supplies the histogram step (the one piece of this stage that the
// compute backend owns); dev must not be nil.
func Build(dev *gpudevice.Device, windowValues []uint32, points []curve.Point, numBuckets int) Result {
	// 1. Histogram via the backend device; bucket 0 is forced empty
	// afterward regardless of what landed there.
	counts := dev.BatchHistogram(windowValues, numBuckets)
	if numBuckets > 0 {
		counts[0] = 0
	}

	// 2. Stable sort bucket indices ascending by size, ties broken by
	// natural index (sort.SliceStable preserves original relative order
	// of equal elements, which here is already ascending natural index).
	idxToBkt := make([]uint32, numBuckets)
	for i := range idxToBkt {
		idxToBkt[i] = uint32(i)
	}
	sort.SliceStable(idxToBkt, func(i, j int) bool {
		return counts[idxToBkt[i]] < counts[idxToBkt[j]]
	})

	// 3. Prefix-sum counts in idxToBkt order.
	bucketShuffled := make([]uint32, numBuckets)
	var running uint32
	for i, b := range idxToBkt {
		running += counts[b]
		bucketShuffled[i] = running
	}

	// bucketPos[b] is the index into idxToBkt where bucket b landed.
	bucketPos := make([]uint32, numBuckets)
	for i, b := range idxToBkt {
		bucketPos[b] = uint32(i)
	}

	total := int(running)
	reshuffled := make([]curve.Point, total)

	// 4. Reshuffle: walk a working copy of the inclusive ends backwards
	// per bucket, writing each point to the last free slot of its bucket
	// segment so segments end up contiguous, in size order.
	writeCursor := make([]uint32, numBuckets)
	copy(writeCursor, bucketShuffled)
	for i, wv := range windowValues {
		if wv == 0 {
			continue
		}
		pos := bucketPos[wv]
		writeCursor[pos]--
		reshuffled[writeCursor[pos]] = points[i]
	}

	return Result{
		NumBuckets:     numBuckets,
		IdxToBkt:       idxToBkt,
		BucketShuffled: bucketShuffled,
		Reshuffled:     reshuffled,
	}
}
