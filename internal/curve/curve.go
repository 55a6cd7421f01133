// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package curve implements point addition on the twisted Edwards curve
// (a=-1) over the base field in package field, in extended projective
// coordinates (X, Y, T, Z), in Montgomery domain.
package curve

import "github.com/luxfi/msm-edwards/internal/field"

// Point is a twisted Edwards point in extended projective coordinates.
// Components are field elements in Montgomery form; arithmetic between
// two Points assumes both operands share that encoding.
type Point struct {
	X, Y, T, Z field.Fq
}

// Zero returns the neutral element: X=0, Y=Z, T=0, with Y=Z=to_mont(1).
func Zero() Point {
	one := field.ToMont(field.One())
	return Point{X: field.Zero(), Y: one, T: field.Zero(), Z: one}
}

// IsZero reports whether p is the neutral element.
func IsZero(p Point) bool {
	return field.IsZero(p.X) && field.Equal(p.Y, p.Z) && field.IsZero(p.T)
}

// Neg returns -p: (-X, Y, -T, Z).
func Neg(p Point) Point {
	return Point{X: field.NegModP(p.X), Y: p.Y, T: field.NegModP(p.T), Z: p.Z}
}

// Equal compares two points projectively (X1*Z2==X2*Z1 && Y1*Z2==Y2*Z1),
// not limb-for-limb, since (X,Y,T,Z) representatives of the same affine
// point are not unique.
func Equal(p, q Point) bool {
	l1 := field.Fmul(p.X, q.Z)
	l2 := field.Fmul(q.X, p.Z)
	r1 := field.Fmul(p.Y, q.Z)
	r2 := field.Fmul(q.Y, p.Z)
	return field.Equal(l1, l2) && field.Equal(r1, r2)
}

// dMont is d=3021 pre-encoded into Montgomery form; computed once at
// package init since field.ToMont needs a runtime REDC call.
var dMont = field.ToMont(field.FromWords(wordsOf(field.D)))

func wordsOf(v uint32) [field.NumWords]uint32 {
	var w [field.NumWords]uint32
	w[field.NumWords-1] = v
	return w
}

// Add implements the Hisil-Wong-Carter-Dawson extended twisted Edwards
// 8M addition formula with a=-1, d pre-multiplied into the T1*T2 term.
// Handles the neutral element on either side as an ordinary input (the
// formula is complete for this curve shape).
func Add(p, q Point) Point {
	a := field.Fmul(field.SubModP(p.Y, p.X), field.SubModP(q.Y, q.X))
	b := field.Fmul(field.AddModP(p.Y, p.X), field.AddModP(q.Y, q.X))
	cPrime := field.DoubleModP(field.Fmul(field.Fmul(p.T, q.T), dMont))
	d := field.DoubleModP(field.Fmul(p.Z, q.Z))
	e := field.SubModP(b, a)
	f := field.SubModP(d, cPrime)
	g := field.AddModP(d, cPrime)
	h := field.AddModP(b, a)
	return Point{
		X: field.Fmul(e, f),
		Y: field.Fmul(g, h),
		T: field.Fmul(e, h),
		Z: field.Fmul(f, g),
	}
}

// AddOriginal is the textbook extended twisted Edwards addition formula,
// using an explicit scalar multiply by d rather than pre-folding d into
// T1*T2. Semantically identical to Add; retained for cross-validation.
func AddOriginal(p, q Point) Point {
	a := field.Fmul(field.SubModP(p.Y, p.X), field.SubModP(q.Y, q.X))
	b := field.Fmul(field.AddModP(p.Y, p.X), field.AddModP(q.Y, q.X))
	tt := field.Fmul(p.T, q.T)
	cPrime := field.DoubleModP(field.Fmul(dMont, tt))
	d := field.Fmul(p.Z, q.Z)
	d = field.AddModP(d, d)
	e := field.SubModP(b, a)
	f := field.SubModP(d, cPrime)
	g := field.AddModP(d, cPrime)
	h := field.AddModP(b, a)
	return Point{
		X: field.Fmul(e, f),
		Y: field.Fmul(g, h),
		T: field.Fmul(e, h),
		Z: field.Fmul(f, g),
	}
}

// Double returns p+p. The original implementation has no dedicated
// doubling formula and reuses general addition; preserved as-is so the
// frozen end-to-end reference answers stay reproducible.
func Double(p Point) Point { return Add(p, p) }

// ToMont converts every component of p from standard to Montgomery form.
func ToMont(p Point) Point {
	return Point{X: field.ToMont(p.X), Y: field.ToMont(p.Y), T: field.ToMont(p.T), Z: field.ToMont(p.Z)}
}

// FromMont converts every component of p from Montgomery to standard form.
func FromMont(p Point) Point {
	return Point{X: field.FromMont(p.X), Y: field.FromMont(p.Y), T: field.FromMont(p.T), Z: field.FromMont(p.Z)}
}

// Affine returns the affine (x, y) coordinates of a Montgomery-domain
// extended point: x = X/Z, y = Y/Z, both converted out of Montgomery form.
func Affine(p Point) (x, y field.Fq) {
	zInv := modInverse(p.Z)
	x = field.FromMont(field.Fmul(p.X, zInv))
	y = field.FromMont(field.Fmul(p.Y, zInv))
	return x, y
}

// modInverse computes the Montgomery-domain inverse of a via Fermat's
// little theorem (a^(p-2) mod p), carried out entirely with fmul so the
// result is itself in Montgomery form.
func modInverse(a field.Fq) field.Fq {
	result := field.ToMont(field.One())
	base := a
	for _, word := range pMinusTwoWords {
		for bit := 31; bit >= 0; bit-- {
			result = field.Fmul(result, result)
			if word&(1<<uint(bit)) != 0 {
				result = field.Fmul(result, base)
			}
		}
	}
	return result
}

// pMinusTwoWords is p-2, MSB-first, the Fermat's-little-theorem exponent
// used by modInverse.
var pMinusTwoWords = func() [field.NumWords]uint32 {
	p := field.Fq(*field.Modulus)
	two := field.FromWords([field.NumWords]uint32{0, 0, 0, 0, 0, 0, 0, 2})
	return field.U256Sub(p, two).Words()
}()
