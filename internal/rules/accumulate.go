package rules

import (
	"fmt"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/chainrule/internal/diff"
)

// Accumulate returns current + p(deltas...) under the differential algebra.
// No coercion to a concrete numeric container happens: the result may be a
// Zero, a Thunk, a Wirtinger, or an ordinary value, whatever diff.Add
// produces. The propagator must be single-output.
func Accumulate(current any, p Propagator, deltas ...any) any {
	return diff.Add(current, single(p.Propagate(deltas...)))
}

// AccumulateInto adds p(deltas...) into a caller-owned accumulator in place
// and returns the accumulator.
//
// A WithUpdater propagator dispatches to its dedicated update function.
// Slice accumulators ([]float64, []complex128) are updated elementwise with
// scalar broadcast. Any other accumulator, including a plain scalar,
// degrades to the non-in-place Accumulate form.
//
// Accumulating DoesNotExist or a bare Wirtinger value into numeric storage
// panics: neither has a silent numeric rendering.
func AccumulateInto(acc any, p Propagator, deltas ...any) any {
	if u, ok := p.(WithUpdater); ok {
		return u.Update(acc, deltas...)
	}
	switch dst := acc.(type) {
	case []float64:
		addIntoFloats(dst, single(p.Propagate(deltas...)))
		return dst
	case []complex128:
		addIntoCmplxs(dst, single(p.Propagate(deltas...)))
		return dst
	default:
		return Accumulate(acc, p, deltas...)
	}
}

// Store evaluates p(deltas...) and overwrites the accumulator's storage with
// the result, broadcasting scalars across slice accumulators. For a plain
// scalar accumulator the externed result is returned instead.
func Store(acc any, p Propagator, deltas ...any) any {
	out := single(p.Propagate(deltas...))
	switch dst := acc.(type) {
	case []float64:
		storeFloats(dst, out)
		return dst
	case []complex128:
		storeCmplxs(dst, out)
		return dst
	default:
		v, err := diff.Extern(out)
		if err != nil {
			panic(fmt.Sprintf("rules: Store: %v", err))
		}
		return v
	}
}

func addIntoFloats(dst []float64, v any) {
	switch x := v.(type) {
	case diff.Zero:
	case diff.One:
		floats.AddConst(1, dst)
	case diff.Thunk:
		addIntoFloats(dst, x.Force())
	case diff.DoesNotExist:
		panic("rules: cannot accumulate a DoesNotExist derivative into numeric storage")
	case diff.Wirtinger:
		panic("rules: cannot accumulate a Wirtinger differential into numeric storage, collapse it with diff.ForDomain first")
	case []float64:
		floats.Add(dst, x)
	case float64:
		floats.AddConst(x, dst)
	case float32:
		floats.AddConst(float64(x), dst)
	case int:
		floats.AddConst(float64(x), dst)
	default:
		panic(fmt.Sprintf("rules: cannot accumulate %T into a []float64 accumulator", v))
	}
}

func addIntoCmplxs(dst []complex128, v any) {
	switch x := v.(type) {
	case diff.Zero:
	case diff.One:
		cmplxs.AddConst(1, dst)
	case diff.Thunk:
		addIntoCmplxs(dst, x.Force())
	case diff.DoesNotExist:
		panic("rules: cannot accumulate a DoesNotExist derivative into numeric storage")
	case diff.Wirtinger:
		panic("rules: cannot accumulate a Wirtinger differential into numeric storage, collapse it with diff.ForDomain first")
	case []complex128:
		cmplxs.Add(dst, x)
	case []float64:
		checkLen(len(dst), len(x))
		for i, f := range x {
			dst[i] += complex(f, 0)
		}
	case complex128:
		cmplxs.AddConst(x, dst)
	case complex64:
		cmplxs.AddConst(complex128(x), dst)
	case float64:
		cmplxs.AddConst(complex(x, 0), dst)
	case int:
		cmplxs.AddConst(complex(float64(x), 0), dst)
	default:
		panic(fmt.Sprintf("rules: cannot accumulate %T into a []complex128 accumulator", v))
	}
}

func storeFloats(dst []float64, v any) {
	switch x := v.(type) {
	case diff.Zero:
		fillFloats(dst, 0)
	case diff.One:
		fillFloats(dst, 1)
	case diff.Thunk:
		storeFloats(dst, x.Force())
	case diff.DoesNotExist:
		panic("rules: cannot store a DoesNotExist derivative into numeric storage")
	case diff.Wirtinger:
		panic("rules: cannot store a Wirtinger differential into numeric storage, collapse it with diff.ForDomain first")
	case []float64:
		checkLen(len(dst), len(x))
		copy(dst, x)
	case float64:
		fillFloats(dst, x)
	case float32:
		fillFloats(dst, float64(x))
	case int:
		fillFloats(dst, float64(x))
	default:
		panic(fmt.Sprintf("rules: cannot store %T into a []float64 accumulator", v))
	}
}

func storeCmplxs(dst []complex128, v any) {
	switch x := v.(type) {
	case diff.Zero:
		fillCmplxs(dst, 0)
	case diff.One:
		fillCmplxs(dst, 1)
	case diff.Thunk:
		storeCmplxs(dst, x.Force())
	case diff.DoesNotExist:
		panic("rules: cannot store a DoesNotExist derivative into numeric storage")
	case diff.Wirtinger:
		panic("rules: cannot store a Wirtinger differential into numeric storage, collapse it with diff.ForDomain first")
	case []complex128:
		checkLen(len(dst), len(x))
		copy(dst, x)
	case []float64:
		checkLen(len(dst), len(x))
		for i, f := range x {
			dst[i] = complex(f, 0)
		}
	case complex128:
		fillCmplxs(dst, x)
	case float64:
		fillCmplxs(dst, complex(x, 0))
	default:
		panic(fmt.Sprintf("rules: cannot store %T into a []complex128 accumulator", v))
	}
}

// checkLen rejects slice results whose length differs from the accumulator's.
func checkLen(nDst, nSrc int) {
	if nDst != nSrc {
		panic(fmt.Sprintf("rules: accumulator length %d does not match result length %d", nDst, nSrc))
	}
}

func fillFloats(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

func fillCmplxs(dst []complex128, v complex128) {
	for i := range dst {
		dst[i] = v
	}
}
