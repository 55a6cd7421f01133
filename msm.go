// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package msm computes multi-scalar multiplications on a twisted Edwards
// curve over a 256-bit prime field, via windowed Pippenger bucketing.
package msm

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/msm-edwards/internal/bucket"
	"github.com/luxfi/msm-edwards/internal/curve"
	"github.com/luxfi/msm-edwards/internal/field"
	"github.com/luxfi/msm-edwards/internal/gpudevice"
	"github.com/luxfi/msm-edwards/internal/mont"
	"github.com/luxfi/msm-edwards/internal/reduce"
	"github.com/luxfi/msm-edwards/internal/scalarsplit"
)

// pointWords is the flat word count of one X‖Y‖T‖Z point.
const pointWords = 4 * field.NumWords

// ComputeMSM computes sum_i scalars[i]*points[i] on the curve and returns
// the affine result as two packed 8xu32 big-endian blocks, x then y.
//
// pointsFlat and scalarsFlat use the wire layout documented on package
// field: 8 u32 per field element, big-endian limbs, native endian within
// each limb; a point is 32 u32 (X, Y, T, Z in order).
//
// Scalars outside [0, p) are not validated or rejected: the window
// splitter decomposes whatever bits are present and the result follows
// from that decomposition, matching the reference implementation.
func ComputeMSM(pointsFlat, scalarsFlat []uint32, cfg Config) ([16]uint32, error) {
	var out [16]uint32
	cfg.applyDefaults()

	if cfg.BucketImpl == BackendGPU || cfg.BucketSumImpl == BackendGPU {
		if !gpudevice.Available() {
			return out, fmt.Errorf("msm: gpu backend requested: %w", gpudevice.ErrDeviceUnavailable)
		}
		// A Device exists on this build, but the bucketer and intra/
		// inter-bucket reducers have no distinct mlx-accelerated kernel
		// (see DESIGN.md) -- only BatchHistogram and dispatch bookkeeping
		// are wired through it. Fail loudly rather than running the CPU
		// algorithm under a "gpu" label.
		return out, fmt.Errorf("msm: bucket/reduce gpu backend requested: %w", gpudevice.ErrGPUPathNotImplemented)
	}

	if len(pointsFlat)%pointWords != 0 {
		return out, fmt.Errorf("msm: points buffer has %d words, not a multiple of %d: %w", len(pointsFlat), pointWords, field.ErrBufferShape)
	}
	nPoints := len(pointsFlat) / pointWords
	if len(scalarsFlat)%field.NumWords != 0 || len(scalarsFlat)/field.NumWords != nPoints {
		return out, fmt.Errorf("msm: %d scalars does not match %d points: %w", len(scalarsFlat)/field.NumWords, nPoints, field.ErrBufferShape)
	}

	device, err := gpudevice.NewDevice(gpudevice.Config{
		MaxInFlight:         cfg.MaxInFlight,
		MaxBatchSize:        cfg.MaxBatchSize,
		MaxInterBucketBatch: cfg.MaxInterBucketBatch,
		Logger:              cfg.Logger,
	})
	if err != nil {
		return out, fmt.Errorf("msm: device init: %w", err)
	}

	// Probing and clamping the batch size touches device allocation state,
	// so it happens under the same lock that would serialize it against a
	// concurrent caller sharing this Device.
	device.Lock()
	batchLimit := cfg.MaxBatchSize
	const pointBytes = uint64(pointWords) * 4
	if probed := device.ProbeCapacity(uint64(batchLimit) * pointBytes); probed > 0 {
		if probedPoints := int(probed / pointBytes); probedPoints < batchLimit {
			batchLimit = probedPoints
		}
	}
	device.Unlock()

	points := mont.ToMont(decodePoints(pointsFlat), device.ClampBatch(nPoints, batchLimit))
	scalars := decodeScalars(scalarsFlat)

	w := cfg.WindowSize
	numBuckets := 1 << uint(w)
	numWindows := scalarsplit.NumWindows(w)

	// splitted[i][win] is scalar i's value in window win; computed once
	// up front so the per-window goroutines below only ever read a column.
	splitted := make([][]uint32, nPoints)
	for i, s := range scalars {
		splitted[i] = scalarsplit.Split(s, w)
	}

	reduced := make([]curve.Point, numWindows)

	group := new(errgroup.Group)
	group.SetLimit(runtime.NumCPU())
	for win := 0; win < numWindows; win++ {
		win := win
		group.Go(func() error {
			return device.Dispatch(func() error {
				windowValues := make([]uint32, nPoints)
				for i := range splitted {
					windowValues[i] = splitted[i][win]
				}
				res := bucket.Build(device, windowValues, points, numBuckets)

				var sums []curve.Point
				switch cfg.IntraBucketStrategy {
				case reduce.StrategyPairwiseTree:
					sums = reduce.PairwiseTree(res)
				default:
					sums = reduce.SegmentedScan(res)
				}

				reduced[win] = reduce.InterBucketReduce(sums)
				device.NotePoints(uint64(nPoints))
				device.NoteWindow()
				cfg.Logger.Debug("msm: window reduced", "window", win)
				return nil
			})
		})
	}
	if err := group.Wait(); err != nil {
		return out, err
	}

	acc := curve.Zero()
	for win := numWindows - 1; win >= 0; win-- {
		for i := 0; i < w; i++ {
			acc = curve.Double(acc)
		}
		acc = curve.Add(acc, reduced[win])
	}

	x, y := curve.Affine(acc)
	xw, yw := x.Words(), y.Words()
	copy(out[:field.NumWords], xw[:])
	copy(out[field.NumWords:], yw[:])
	return out, nil
}

func decodePoints(flat []uint32) []curve.Point {
	n := len(flat) / pointWords
	points := make([]curve.Point, n)
	for i := range points {
		base := i * pointWords
		points[i] = curve.Point{
			X: field.FromWords(wordsAt(flat, base)),
			Y: field.FromWords(wordsAt(flat, base+field.NumWords)),
			T: field.FromWords(wordsAt(flat, base+2*field.NumWords)),
			Z: field.FromWords(wordsAt(flat, base+3*field.NumWords)),
		}
	}
	return points
}

func decodeScalars(flat []uint32) [][field.NumWords]uint32 {
	n := len(flat) / field.NumWords
	scalars := make([][field.NumWords]uint32, n)
	for i := range scalars {
		scalars[i] = wordsAt(flat, i*field.NumWords)
	}
	return scalars
}

func wordsAt(flat []uint32, off int) [field.NumWords]uint32 {
	var w [field.NumWords]uint32
	copy(w[:], flat[off:off+field.NumWords])
	return w
}
