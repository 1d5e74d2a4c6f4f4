// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package diff provides the differential value algebra of the chainrule
// protocol.
//
// A differential represents a derivative, tangent, or cotangent
// contribution. Ordinary Go values (float64, complex128, []float64,
// []complex128) act as concrete differentials; the package adds the
// structural variants every AD engine needs:
//   - Zero: the exact additive identity
//   - One: the exact multiplicative identity
//   - DoesNotExist: a structurally absent derivative
//   - Thunk: a deferred differential, forced on demand
//   - Wirtinger: split primal/conjugate derivatives of non-holomorphic
//     functions
//
// Add and Mul compose any mix of variants and ordinary values.
//
// Example:
//
//	dx := diff.Defer(func() any { return 2.0 * x })
//	dy := diff.Add(diff.Zero{}, diff.Mul(dx, seed)) // == 2x * seed
//	v, err := diff.Extern(dy)
package diff

import (
	"github.com/born-ml/chainrule/internal/diff"
)

// Differential variants.

// Zero is the exact additive identity.
type Zero = diff.Zero

// One is the exact multiplicative identity.
type One = diff.One

// DoesNotExist marks a structurally absent derivative.
type DoesNotExist = diff.DoesNotExist

// Thunk is a deferred differential.
type Thunk = diff.Thunk

// Wirtinger is a split primal/conjugate derivative pair.
type Wirtinger = diff.Wirtinger

// Domain classifies a primal value domain for the Wirtinger-collapse rule.
type Domain = diff.Domain

// Primal domains.
const (
	Unknown      Domain = diff.Unknown
	Real         Domain = diff.Real
	Complex      Domain = diff.Complex
	RealArray    Domain = diff.RealArray
	ComplexArray Domain = diff.ComplexArray
)

// Sentinel errors.
var (
	ErrNotWirtinger    = diff.ErrNotWirtinger
	ErrWirtingerExtern = diff.ErrWirtingerExtern
	ErrDoesNotExist    = diff.ErrDoesNotExist
)

// Defer wraps a deferred computation as a differential.
func Defer(compute func() any) Thunk {
	return diff.Defer(compute)
}

// NewWirtinger builds a split derivative from its primal and conjugate parts.
func NewWirtinger(primal, conjugate any) Wirtinger {
	return diff.NewWirtinger(primal, conjugate)
}

// WirtingerPrimal returns the primal part of a Wirtinger differential.
func WirtingerPrimal(v any) (any, error) {
	return diff.WirtingerPrimal(v)
}

// WirtingerConjugate returns the conjugate part of a Wirtinger differential.
func WirtingerConjugate(v any) (any, error) {
	return diff.WirtingerConjugate(v)
}

// Add combines two differentials under the closure algebra.
func Add(a, b any) any {
	return diff.Add(a, b)
}

// Mul combines two differentials under the closure algebra.
func Mul(a, b any) any {
	return diff.Mul(a, b)
}

// Extern converts a differential to an ordinary value.
func Extern(v any) (any, error) {
	return diff.Extern(v)
}

// DomainOf classifies an ordinary value's domain.
func DomainOf(v any) Domain {
	return diff.DomainOf(v)
}

// Promote combines argument domains into their common promotion.
func Promote(ds ...Domain) Domain {
	return diff.Promote(ds...)
}

// ForDomain collapses a Wirtinger differential over a real-valued domain to
// the sum of its parts; every other combination passes through unchanged.
func ForDomain(d Domain, v any) any {
	return diff.ForDomain(d, v)
}
