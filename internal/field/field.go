// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package field implements the 256-bit modular arithmetic kernel that
// every other layer of the MSM pipeline is built on: raw (non-modular)
// 256-bit integer operations, Montgomery reduction, and Montgomery-form
// field multiplication over the curve's base field.
//
// Fq values are stored limb-0-least-significant internally (matching
// github.com/holiman/uint256's layout, which backs the type), and are
// marshalled to the wire's limb-0-most-significant, 8xuint32 layout only
// at the package boundary (FromWords/Words).
package field

import (
	"encoding/binary"
	"errors"
	"math/bits"

	"github.com/holiman/uint256"
)

// ErrBufferShape is returned by callers that decode a flat []uint32
// buffer into Fq/Point values when the buffer length is not a multiple
// of the expected per-element word count.
var ErrBufferShape = errors.New("field: buffer length is not a multiple of the element word count")

// Fq is an element of Z/pZ, or a raw unsigned 256-bit integer when used
// with the U256* functions. The zero value is 0.
type Fq uint256.Int

// NumWords is the number of 32-bit limbs in the wire representation of
// an Fq or a Scalar.
const NumWords = 8

// D is the twisted Edwards curve's non-trivial parameter; A is fixed at -1
// and is folded directly into the addition formula in package curve.
const D = 3021

var (
	// Modulus is p, the base field prime.
	Modulus = uint256.MustFromDecimal("8444461749428370424248824938781546531375899335154063827935233455917409239041")

	// RModP is R mod p, where R = 2^256.
	RModP = Fq(*uint256.MustFromDecimal("6014086494747379908336260804527802945383293308637734276299549080986809532403"))

	// RInvModP is R^-1 mod p.
	RInvModP = uint256.MustFromDecimal("3482466379256973933331601287759811764685972354380176549708408303012390300674")

	// R2ModP is R^2 mod p, used to fold a to_mont call into a single
	// Montgomery-reduced product: to_mont(a) = redc(a * R^2).
	R2ModP = uint256.MustFromDecimal("508595941311779472113692600146818027278633330499214071737745792929336755579")

	// NPrime is N' = -p^-1 mod R, the Montgomery constant named in the
	// data model. It is not needed by this package's REDC implementation
	// (which reduces via modular multiplication rather than word-at-a-time
	// CIOS), and nothing in this module reads it; it is retained and
	// frozen here as part of the curve's fixed parameter set.
	NPrime = uint256.MustFromDecimal("47752251086953357377073236701509605140872345086634869599321669320666611974143")
)

func u(a Fq) *uint256.Int { return (*uint256.Int)(&a) }

// Zero returns the additive identity.
func Zero() Fq { return Fq{} }

// One returns the multiplicative identity (not Montgomery-encoded).
func One() Fq { return Fq(*uint256.NewInt(1)) }

// Equal reports whether a and b are the same 256-bit value.
func Equal(a, b Fq) bool { return u(a).Eq(u(b)) }

// IsZero reports whether a is the all-zero value.
func IsZero(a Fq) bool { return u(a).IsZero() }

// FromWords decodes the wire layout (8 x uint32, limb 0 most significant,
// native endian within each limb) into an Fq.
func FromWords(w [NumWords]uint32) Fq {
	var b [32]byte
	for i, limb := range w {
		binary.BigEndian.PutUint32(b[i*4:i*4+4], limb)
	}
	var z uint256.Int
	z.SetBytes32(b[:])
	return Fq(z)
}

// Words encodes a into the wire layout.
func (a Fq) Words() [NumWords]uint32 {
	b := u(a).Bytes32()
	var w [NumWords]uint32
	for i := range w {
		w[i] = binary.BigEndian.Uint32(b[i*4 : i*4+4])
	}
	return w
}

// U256Add computes (a+b) mod 2^256, dropping any carry out of bit 255.
func U256Add(a, b Fq) Fq {
	var z uint256.Int
	z.Add(u(a), u(b))
	return Fq(z)
}

// U256Sub computes a-b. The caller guarantees a >= b; if that does not
// hold the result wraps mod 2^256, matching the "unspecified but
// deterministic" edge-case policy of the contract.
func U256Sub(a, b Fq) Fq {
	var z uint256.Int
	z.Sub(u(a), u(b))
	return Fq(z)
}

// U256Cmp performs a strict lexicographic (i.e. plain unsigned integer)
// comparison, returning -1, 0 or +1.
func U256Cmp(a, b Fq) int { return u(a).Cmp(u(b)) }

// U256Cas is the conditional-subtract primitive: a-b if a>=b, else a.
func U256Cas(a, b Fq) Fq {
	if U256Cmp(a, b) < 0 {
		return a
	}
	return U256Sub(a, b)
}

// CmpEncoding renders U256Cmp's result using the field kernel's wire
// encoding for comparisons: strict greater is all limbs 0x00000001,
// strict less is all limbs 0xFFFFFFFF, equal is all-zero.
func CmpEncoding(a, b Fq) [NumWords]uint32 {
	var w [NumWords]uint32
	switch U256Cmp(a, b) {
	case 1:
		for i := range w {
			w[i] = 0x00000001
		}
	case -1:
		for i := range w {
			w[i] = 0xFFFFFFFF
		}
	}
	return w
}

// Wide512 is the 512-bit output of U256Mul: sixteen 32-bit limbs when
// serialized, represented here as two 256-bit halves with the low half
// in the low address, matching the layout the distilled spec's design
// notes call out explicitly.
type Wide512 struct {
	Lo Fq
	Hi Fq
}

// words extracts the four little-endian 64-bit limbs backing an Fq.
func words(a Fq) [4]uint64 { return [4]uint64(uint256.Int(a)) }

func fromLimbs(l [4]uint64) Fq { return Fq(uint256.Int(l)) }

// U256Mul computes the full, unreduced 256x256->512 product.
func U256Mul(a, b Fq) Wide512 {
	aw, bw := words(a), words(b)
	var out [8]uint64
	for i := 0; i < 4; i++ {
		var carry uint64
		for j := 0; j < 4; j++ {
			hi, lo := bits.Mul64(aw[i], bw[j])
			sum, c1 := bits.Add64(out[i+j], lo, 0)
			sum, c2 := bits.Add64(sum, carry, 0)
			out[i+j] = sum
			carry = hi + c1 + c2
		}
		out[i+4] = carry
	}
	var lo, hi [4]uint64
	copy(lo[:], out[:4])
	copy(hi[:], out[4:])
	return Wide512{Lo: fromLimbs(lo), Hi: fromLimbs(hi)}
}

// Redc performs Montgomery reduction of a wide value t = hi*R + lo,
// t in [0, R*p), returning t * R^-1 mod p.
//
// Rather than the word-at-a-time CIOS algorithm, this computes the
// mathematically equivalent (hi + lo*R^-1) mod p: since R*R^-1 === 1
// (mod p), hi*R*R^-1 === hi (mod p) regardless of hi's magnitude, so
// the R-multiple folds away without ever materializing t itself.
func Redc(t Wide512) Fq {
	var loTerm uint256.Int
	loTerm.MulMod(u(t.Lo), RInvModP, Modulus)
	var hiTerm uint256.Int
	hiTerm.Mod(u(t.Hi), Modulus)
	var out uint256.Int
	out.AddMod(&hiTerm, &loTerm, Modulus)
	return Fq(out)
}

// redcProduct computes redc(x*y) for two (not necessarily reduced)
// 256-bit values, via the same congruence Redc relies on: x*y mod p,
// then multiplied by R^-1 mod p, is congruent to redc of the true
// unreduced product.
func redcProduct(x, y *uint256.Int) Fq {
	var xy uint256.Int
	xy.MulMod(x, y, Modulus)
	var out uint256.Int
	out.MulMod(&xy, RInvModP, Modulus)
	return Fq(out)
}

// Fmul is the Montgomery-form field multiply: for a,b already encoded
// as a*R mod p and b*R mod p, returns (a*b)*R mod p.
func Fmul(a, b Fq) Fq { return redcProduct(u(a), u(b)) }

// ToMont encodes a into Montgomery form: a*R mod p.
func ToMont(a Fq) Fq { return redcProduct(u(a), R2ModP) }

// FromMont decodes a Montgomery-form value back to standard form.
func FromMont(a Fq) Fq {
	var out uint256.Int
	out.MulMod(u(a), RInvModP, Modulus)
	return Fq(out)
}

// AddModP adds two already-reduced field elements, matching the "reduce
// mod p by conditional subtract" policy the curve kernel relies on.
func AddModP(a, b Fq) Fq { return U256Cas(U256Add(a, b), Fq(*Modulus)) }

// SubModP subtracts two already-reduced field elements.
func SubModP(a, b Fq) Fq {
	if U256Cmp(a, b) < 0 {
		a = U256Add(a, Fq(*Modulus))
	}
	return U256Sub(a, b)
}

// NegModP returns p-a for a!=0, or 0 for a==0.
func NegModP(a Fq) Fq {
	if IsZero(a) {
		return a
	}
	return SubModP(Fq(*Modulus), a)
}

// DoubleModP returns 2a mod p.
func DoubleModP(a Fq) Fq { return AddModP(a, a) }
