// Package diff provides the core differential value algebra for the chainrule protocol.
//
// A differential is a derivative, tangent, or cotangent contribution. Most of
// the time it is an ordinary Go value (float64, complex128, []float64,
// []complex128), but the protocol also needs a small closed set of structural
// variants: exact zero, exact one, "does not exist", deferred computations,
// and split real/conjugate (Wirtinger) derivatives. Add and Mul compose any
// mix of these with ordinary values.
package diff

import "fmt"

// Zero is the exact additive identity. Zero + x == x for every differential
// or ordinary value x, and Zero * x == Zero. Unlike a numeric 0.0 it carries
// no shape or element type, so it composes with scalars and arrays alike.
type Zero struct{}

// One is the exact multiplicative identity: One * x == x. It also acts as a
// numeric unit under addition, so One + x adds 1 to x.
type One struct{}

// DoesNotExist marks a derivative that is undefined or structurally absent,
// such as the derivative with respect to an integer index. It propagates
// through arithmetic as an absorbing "do not compute" marker and is never
// silently coerced to a numeric zero.
type DoesNotExist struct{}

// Thunk is a deferred differential wrapping a zero-argument computation.
// The computation runs when the thunk is first combined in an operation that
// needs a concrete value; identity and absorbing cases (Zero, One * x,
// DoesNotExist) resolve without forcing it. Forcing is not memoized: callers
// needing a cached result must wrap the computation themselves.
type Thunk struct {
	compute func() any
}

// Defer wraps a deferred computation as a differential.
func Defer(compute func() any) Thunk {
	if compute == nil {
		panic("diff: Defer requires a non-nil computation")
	}
	return Thunk{compute: compute}
}

// Force runs the deferred computation. The result may itself be a Thunk;
// Extern and the arithmetic operations force repeatedly until a concrete
// value is reached.
func (t Thunk) Force() any {
	return t.compute()
}

// Wirtinger is a split complex derivative: the pair of partial derivatives of
// a non-holomorphic function with respect to a variable and its conjugate.
// Wirtinger values add componentwise and scale by ordinary values, but the
// product of two Wirtinger values is undefined in this representation and
// panics. Use ForDomain to collapse the pair to primal+conjugate when the
// primal domain is known to be real.
type Wirtinger struct {
	primal    any
	conjugate any
}

// NewWirtinger builds a split derivative from its primal and conjugate parts.
func NewWirtinger(primal, conjugate any) Wirtinger {
	return Wirtinger{primal: primal, conjugate: conjugate}
}

// Primal returns the derivative with respect to the variable itself.
func (w Wirtinger) Primal() any {
	return w.primal
}

// Conjugate returns the derivative with respect to the conjugated variable.
func (w Wirtinger) Conjugate() any {
	return w.conjugate
}

func (w Wirtinger) String() string {
	return fmt.Sprintf("Wirtinger(%v, %v)", w.primal, w.conjugate)
}

// WirtingerPrimal returns the primal part of a Wirtinger differential.
// Returns ErrNotWirtinger if v is any other kind of value.
func WirtingerPrimal(v any) (any, error) {
	w, ok := v.(Wirtinger)
	if !ok {
		return nil, fmt.Errorf("WirtingerPrimal: %w (got %T)", ErrNotWirtinger, v)
	}
	return w.primal, nil
}

// WirtingerConjugate returns the conjugate part of a Wirtinger differential.
// Returns ErrNotWirtinger if v is any other kind of value.
func WirtingerConjugate(v any) (any, error) {
	w, ok := v.(Wirtinger)
	if !ok {
		return nil, fmt.Errorf("WirtingerConjugate: %w (got %T)", ErrNotWirtinger, v)
	}
	return w.conjugate, nil
}

// Extern converts a differential to an ordinary value for the host numeric
// system: Zero becomes float64(0), One becomes float64(1), a Thunk is forced
// repeatedly until concrete, and ordinary values pass through unchanged.
// DoesNotExist has no numeric representation and a bare Wirtinger is
// ambiguous (pick a part with WirtingerPrimal or WirtingerConjugate); both
// return sentinel errors.
func Extern(v any) (any, error) {
	for {
		switch d := v.(type) {
		case Zero:
			return float64(0), nil
		case One:
			return float64(1), nil
		case DoesNotExist:
			return nil, fmt.Errorf("Extern: %w", ErrDoesNotExist)
		case Wirtinger:
			return nil, fmt.Errorf("Extern: %w", ErrWirtingerExtern)
		case Thunk:
			v = d.Force()
		default:
			return v, nil
		}
	}
}
