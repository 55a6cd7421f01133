// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package mont implements the host-driven batched Montgomery converter:
// encoding/decoding field elements and whole points between standard and
// Montgomery form, with batch-size clamping against the active compute
// backend's capacity.
package mont

import (
	"github.com/luxfi/msm-edwards/internal/curve"
	"github.com/luxfi/msm-edwards/internal/field"
)

// ClampBatch mirrors the original staging-buffer invariant
// (staging_offset + next_batch_bytes <= staging_capacity) by returning
// the largest batch that still fits maxElems, given a total of n
// elements still to process.
func ClampBatch(n, maxElems int) int {
	if maxElems <= 0 || n < maxElems {
		return n
	}
	return maxElems
}

// stagingPair models the double-buffered staging area: two reusable
// scratch slices swapped each batch so the next batch's writes never
// race a read of the previous one still in flight.
type stagingPair struct {
	bufs [2][]field.Fq
	cur  int
}

func newStagingPair(batch int) *stagingPair {
	return &stagingPair{bufs: [2][]field.Fq{make([]field.Fq, batch), make([]field.Fq, batch)}}
}

func (s *stagingPair) next() []field.Fq {
	s.cur ^= 1
	return s.bufs[s.cur][:0]
}

// ToMontElems converts a slice of standard-form field elements to
// Montgomery form, batching the conversion in chunks of at most
// maxBatch elements through a double-buffered staging area.
func ToMontElems(elems []field.Fq, maxBatch int) []field.Fq {
	return convertElems(elems, maxBatch, field.ToMont)
}

// FromMontElems is ToMontElems's inverse.
func FromMontElems(elems []field.Fq, maxBatch int) []field.Fq {
	return convertElems(elems, maxBatch, field.FromMont)
}

func convertElems(elems []field.Fq, maxBatch int, convert func(field.Fq) field.Fq) []field.Fq {
	out := make([]field.Fq, len(elems))
	if maxBatch <= 0 {
		maxBatch = len(elems)
	}
	staging := newStagingPair(maxBatch)
	for off := 0; off < len(elems); off += maxBatch {
		end := off + maxBatch
		if end > len(elems) {
			end = len(elems)
		}
		batch := staging.next()
		for _, e := range elems[off:end] {
			batch = append(batch, convert(e))
		}
		copy(out[off:end], batch)
	}
	return out
}

// ToMont converts a slice of points (all four components) from standard
// to Montgomery form.
func ToMont(points []curve.Point, maxBatch int) []curve.Point {
	return convertPoints(points, maxBatch, curve.ToMont)
}

// FromMont is ToMont's inverse.
func FromMont(points []curve.Point, maxBatch int) []curve.Point {
	return convertPoints(points, maxBatch, curve.FromMont)
}

func convertPoints(points []curve.Point, maxBatch int, convert func(curve.Point) curve.Point) []curve.Point {
	out := make([]curve.Point, len(points))
	if maxBatch <= 0 {
		maxBatch = len(points)
	}
	for off := 0; off < len(points); off += maxBatch {
		end := off + maxBatch
		if end > len(points) {
			end = len(points)
		}
		for i := off; i < end; i++ {
			out[i] = convert(points[i])
		}
	}
	return out
}
