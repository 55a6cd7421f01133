// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package msm_test

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	msm "github.com/luxfi/msm-edwards"
	"github.com/luxfi/msm-edwards/internal/curve"
	"github.com/luxfi/msm-edwards/internal/field"
	"github.com/luxfi/msm-edwards/internal/gpudevice"
	"github.com/luxfi/msm-edwards/internal/reduce"
)

// basePoint is x=2 on the curve; y and T were solved offline from the
// curve equation via Tonelli-Shanks. Standard (non-Montgomery) form.
var basePoint = curve.Point{
	X: field.FromWords([8]uint32{0, 0, 0, 0, 0, 0, 0, 2}),
	Y: field.FromWords([8]uint32{0x0c473915, 0xfcd02fa1, 0xd1e2f8fb, 0x7c79cf30, 0x05085459, 0x7765e192, 0x5615ed9a, 0x74567380}),
	T: field.FromWords([8]uint32{0x05e30ccd, 0x5f73b9ed, 0x4311a4d8, 0x9cbbee5e, 0xb06631b4, 0x1ecbc323, 0xa21a5b34, 0xe8ace6ff}),
	Z: field.FromWords([8]uint32{0, 0, 0, 0, 0, 0, 0, 1}),
}

func flattenPoints(pts []curve.Point) []uint32 {
	out := make([]uint32, 0, len(pts)*32)
	for _, p := range pts {
		for _, c := range []field.Fq{p.X, p.Y, p.T, p.Z} {
			w := c.Words()
			out = append(out, w[:]...)
		}
	}
	return out
}

func flattenScalars(scalars [][8]uint32) []uint32 {
	out := make([]uint32, 0, len(scalars)*8)
	for _, s := range scalars {
		out = append(out, s[:]...)
	}
	return out
}

// stdMul computes a*b mod p for standard-form (non-Montgomery) operands,
// round-tripping through Montgomery form since field.Fmul itself assumes
// its inputs are already Montgomery-encoded.
func stdMul(a, b field.Fq) field.Fq {
	return field.FromMont(field.Fmul(field.ToMont(a), field.ToMont(b)))
}

func scalarFromUint64(v uint64) [8]uint32 {
	var s [8]uint32
	s[7] = uint32(v)
	s[6] = uint32(v >> 32)
	return s
}

func TestComputeMSMSingleScalarOne(t *testing.T) {
	pointsFlat := flattenPoints([]curve.Point{basePoint})
	scalarsFlat := flattenScalars([][8]uint32{scalarFromUint64(1)})

	out, err := msm.ComputeMSM(pointsFlat, scalarsFlat, msm.DefaultConfig())
	require.NoError(t, err)

	var wantX, wantY [8]uint32
	copy(wantX[:], out[:8])
	copy(wantY[:], out[8:])
	require.Equal(t, basePoint.X.Words(), wantX)
	require.Equal(t, basePoint.Y.Words(), wantY)
}

func TestComputeMSMAllZeroScalarsIsIdentity(t *testing.T) {
	pts := []curve.Point{basePoint, basePoint, basePoint}
	pointsFlat := flattenPoints(pts)
	scalarsFlat := flattenScalars([][8]uint32{{}, {}, {}})

	out, err := msm.ComputeMSM(pointsFlat, scalarsFlat, msm.DefaultConfig())
	require.NoError(t, err)

	// Affine identity is (0, 1).
	var wantX, wantY [8]uint32
	wantY[7] = 1
	var gotX, gotY [8]uint32
	copy(gotX[:], out[:8])
	copy(gotY[:], out[8:])
	require.Equal(t, wantX, gotX)
	require.Equal(t, wantY, gotY)
}

func TestComputeMSMRejectsMalformedPointsBuffer(t *testing.T) {
	_, err := msm.ComputeMSM(make([]uint32, 31), make([]uint32, 8), msm.DefaultConfig())
	require.ErrorIs(t, err, field.ErrBufferShape)
}

func TestComputeMSMRejectsScalarPointCountMismatch(t *testing.T) {
	pointsFlat := flattenPoints([]curve.Point{basePoint})
	scalarsFlat := flattenScalars([][8]uint32{scalarFromUint64(1), scalarFromUint64(2)})
	_, err := msm.ComputeMSM(pointsFlat, scalarsFlat, msm.DefaultConfig())
	require.ErrorIs(t, err, field.ErrBufferShape)
}

// TestComputeMSMGPUBackendNotSupported documents that requesting the gpu
// backend never silently runs the cpu algorithm under a different label:
// it is fatal either because this build has no device at all, or because
// the device exists but the bucketer/reducer have no distinct gpu kernel.
func TestComputeMSMGPUBackendNotSupported(t *testing.T) {
	pointsFlat := flattenPoints([]curve.Point{basePoint})
	scalarsFlat := flattenScalars([][8]uint32{scalarFromUint64(1)})

	cfg := msm.DefaultConfig()
	cfg.BucketImpl = msm.BackendGPU

	_, err := msm.ComputeMSM(pointsFlat, scalarsFlat, cfg)
	require.Error(t, err)
	if gpudevice.Available() {
		require.ErrorIs(t, err, gpudevice.ErrGPUPathNotImplemented)
	} else {
		require.ErrorIs(t, err, gpudevice.ErrDeviceUnavailable)
	}
}

func TestComputeMSMMatchesNaiveDoubleAndAdd(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	n := 40
	pts := make([]curve.Point, n)
	scalars := make([][8]uint32, n)
	acc := curve.ToMont(basePoint)
	for i := 0; i < n; i++ {
		for s := 0; s < 1+rng.Intn(4); s++ {
			acc = curve.Double(acc)
		}
		acc = curve.Add(acc, curve.ToMont(basePoint))
		x, y := curve.Affine(acc)
		pts[i] = curve.Point{X: x, Y: y, T: stdMul(x, y), Z: field.One()}

		var s [8]uint32
		s[7] = rng.Uint32() % 4096
		s[6] = rng.Uint32() % 16
		scalars[i] = s
	}

	cfg := msm.DefaultConfig()
	cfg.WindowSize = 8
	out, err := msm.ComputeMSM(flattenPoints(pts), flattenScalars(scalars), cfg)
	require.NoError(t, err)

	// Independent reference: naive double-and-add accumulation in
	// Montgomery form, summed in the same order.
	want := curve.Zero()
	for i, p := range pts {
		mp := curve.ToMont(p)
		contrib := curve.Zero()
		base := mp
		v := uint64(scalars[i][6])<<32 | uint64(scalars[i][7])
		for v > 0 {
			if v&1 == 1 {
				contrib = curve.Add(contrib, base)
			}
			base = curve.Double(base)
			v >>= 1
		}
		want = curve.Add(want, contrib)
	}
	wx, wy := curve.Affine(want)

	var gotX, gotY [8]uint32
	copy(gotX[:], out[:8])
	copy(gotY[:], out[8:])
	require.Equal(t, wx.Words(), gotX)
	require.Equal(t, wy.Words(), gotY)
}

func TestComputeMSMStrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 80
	pts := make([]curve.Point, n)
	scalars := make([][8]uint32, n)
	acc := curve.ToMont(basePoint)
	for i := 0; i < n; i++ {
		acc = curve.Double(acc)
		acc = curve.Add(acc, curve.ToMont(basePoint))
		x, y := curve.Affine(acc)
		pts[i] = curve.Point{X: x, Y: y, T: stdMul(x, y), Z: field.One()}
		scalars[i] = scalarFromUint64(rng.Uint64() & 0xFFFFFF)
	}

	pointsFlat := flattenPoints(pts)
	scalarsFlat := flattenScalars(scalars)

	cfgSegmented := msm.DefaultConfig()
	cfgSegmented.WindowSize = 8
	cfgSegmented.IntraBucketStrategy = reduce.StrategySegmentedScan

	cfgPairwise := cfgSegmented
	cfgPairwise.IntraBucketStrategy = reduce.StrategyPairwiseTree

	outA, err := msm.ComputeMSM(pointsFlat, scalarsFlat, cfgSegmented)
	require.NoError(t, err)
	outB, err := msm.ComputeMSM(pointsFlat, scalarsFlat, cfgPairwise)
	require.NoError(t, err)
	require.Equal(t, outA, outB)
}

// TestComputeMSMReferenceFixtures exercises the frozen end-to-end answers
// for n = 2^16 .. 2^20 against fixtures the caller supplies under
// testdata/; this repository does not ship the fixtures themselves (see
// SPEC_FULL.md §6), so the test skips when they are absent.
func TestComputeMSMReferenceFixtures(t *testing.T) {
	for power := 16; power <= 20; power++ {
		power := power
		t.Run(powerName(power), func(t *testing.T) {
			pointsPath := filepath.Join("testdata", powerName(power)+"_points.bin")
			scalarsPath := filepath.Join("testdata", powerName(power)+"_scalars.bin")

			pointsRaw, err := os.ReadFile(pointsPath)
			if os.IsNotExist(err) {
				t.Skip("no fixture at " + pointsPath)
			}
			require.NoError(t, err)
			scalarsRaw, err := os.ReadFile(scalarsPath)
			require.NoError(t, err)

			pointsFlat := decodeLEWords(pointsRaw)
			scalarsFlat := decodeLEWords(scalarsRaw)

			out, err := msm.ComputeMSM(pointsFlat, scalarsFlat, msm.DefaultConfig())
			require.NoError(t, err)

			want, ok := referenceAnswers[power]
			require.True(t, ok, "no reference answer recorded for power %d", power)
			require.Equal(t, want, out)
		})
	}
}

func powerName(p int) string { return "n2e" + itoa(p) }

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func decodeLEWords(raw []byte) []uint32 {
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	return out
}

// referenceAnswers holds the frozen (x, y) affine answers from
// SPEC_FULL.md §8's end-to-end table (decimal integers converted to
// big-endian 8xu32 words), keyed by power-of-two input size. Checking
// against these is the point of TestComputeMSMReferenceFixtures; the
// fixture-absent skip above only fires when the caller has not supplied
// the corresponding testdata/ points and scalars.
var referenceAnswers = map[int][16]uint32{
	16: {
		0x09ed6b3b, 0x134f041a, 0x00008832, 0xad4949e6, 0x31c8f7b5, 0xbd98c6b8, 0x1aecd71e, 0xe7b075fd,
		0x00754a2d, 0x189df7e4, 0x4f266012, 0xf99f3b5c, 0x52c0869a, 0x82b0f931, 0xfaed9617, 0xb5f7a3ea,
	},
	17: {
		0x00e5a63b, 0xda3cbc2d, 0xf4ce23ac, 0xc94edd3d, 0x9bf6d2d0, 0x846a72df, 0x1ee1b6a1, 0x40b96488,
		0x0fb9ce9a, 0x5a65ab0e, 0xcf5e18c4, 0x37cb64a1, 0x2e4cbdb7, 0x782bd071, 0xacbfebf5, 0x96c33685,
	},
	18: {
		0x08e350d6, 0x4dd6ad78, 0xd20a7f5a, 0xeb7a9713, 0xedb36079, 0x537547ea, 0x966bdde9, 0xf28e18f7,
		0x05f4ef7d, 0x50adee1a, 0x8c269999, 0xe0cb1b51, 0xae1cd90a, 0xd4c26049, 0x7de28595, 0xa9f480d6,
	},
	19: {
		0x0886d49f, 0xfe1a30d8, 0x737697a1, 0x82d6c794, 0xdcfc3e74, 0xb7648ea6, 0xa4458d30, 0x49b41459,
		0x0317aa1c, 0xca3f727d, 0x3e0535ed, 0xf523ed83, 0x6709fee6, 0xc2dbf3a4, 0x609f8573, 0x79d9fb42,
	},
	20: {
		0x0b8024b8, 0x330f9482, 0x58fd25a5, 0xb4a586c1, 0x43c9e089, 0xe34cec56, 0xf4f75bcb, 0x5f0fc9dd,
		0x07edced5, 0xdbd9ab65, 0xabc51114, 0x8257bb78, 0x9b10f7b9, 0x965a97d4, 0x6d82ae6a, 0xdc04a7bb,
	},
}
