package diff

import (
	"fmt"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
)

// Add combines two differentials under the closure table:
//
//   - Zero is the additive identity and never forces the other operand.
//   - DoesNotExist absorbs: the sum of an absent derivative is absent.
//   - Thunks are forced, repeatedly, once a concrete sum is required.
//   - Wirtinger values add componentwise; an ordinary value adds into the
//     primal part (an ordinary differential is Wirtinger(v, Zero)).
//   - One and ordinary numeric/array values add numerically, with scalar
//     broadcast over []float64 and []complex128.
//
// Mixed-length array operands panic, as the underlying gonum kernels do.
func Add(a, b any) any {
	if _, ok := a.(Zero); ok {
		return b
	}
	if _, ok := b.(Zero); ok {
		return a
	}
	if _, ok := a.(DoesNotExist); ok {
		return DoesNotExist{}
	}
	if _, ok := b.(DoesNotExist); ok {
		return DoesNotExist{}
	}
	if t, ok := a.(Thunk); ok {
		return Add(t.Force(), b)
	}
	if t, ok := b.(Thunk); ok {
		return Add(a, t.Force())
	}
	wa, aok := a.(Wirtinger)
	wb, bok := b.(Wirtinger)
	switch {
	case aok && bok:
		return Wirtinger{
			primal:    Add(wa.primal, wb.primal),
			conjugate: Add(wa.conjugate, wb.conjugate),
		}
	case aok:
		return Wirtinger{primal: Add(wa.primal, b), conjugate: wa.conjugate}
	case bok:
		return Wirtinger{primal: Add(a, wb.primal), conjugate: wb.conjugate}
	}
	return addExtern(a, b)
}

// Mul combines two differentials under the closure table:
//
//   - Zero absorbs without forcing the other operand.
//   - DoesNotExist absorbs (unless annihilated by Zero first).
//   - One is the multiplicative identity and never forces the other operand,
//     so One * Thunk stays deferred.
//   - A Wirtinger value scales componentwise by an ordinary value; the
//     product of two Wirtinger values is undefined and panics.
//   - Ordinary numeric/array values multiply elementwise with scalar
//     broadcast.
func Mul(a, b any) any {
	if _, ok := a.(Zero); ok {
		return Zero{}
	}
	if _, ok := b.(Zero); ok {
		return Zero{}
	}
	if _, ok := a.(DoesNotExist); ok {
		return DoesNotExist{}
	}
	if _, ok := b.(DoesNotExist); ok {
		return DoesNotExist{}
	}
	if _, ok := a.(One); ok {
		return b
	}
	if _, ok := b.(One); ok {
		return a
	}
	if t, ok := a.(Thunk); ok {
		return Mul(t.Force(), b)
	}
	if t, ok := b.(Thunk); ok {
		return Mul(a, t.Force())
	}
	wa, aok := a.(Wirtinger)
	wb, bok := b.(Wirtinger)
	switch {
	case aok && bok:
		panic("diff: Wirtinger * Wirtinger is undefined, Wirtinger differentials do not form a ring under multiplication")
	case aok:
		return Wirtinger{primal: Mul(wa.primal, b), conjugate: Mul(wa.conjugate, b)}
	case bok:
		return Wirtinger{primal: Mul(a, wb.primal), conjugate: Mul(a, wb.conjugate)}
	}
	return mulExtern(a, b)
}

// canon normalizes an ordinary value to one of the four canonical extern
// kinds: float64, complex128, []float64, []complex128.
func canon(v any) any {
	switch x := v.(type) {
	case One:
		return float64(1)
	case float64, complex128, []float64, []complex128:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case complex64:
		return complex128(x)
	default:
		panic(fmt.Sprintf("diff: %T is not a differential value", v))
	}
}

func cloneFloats(s []float64) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	return out
}

func cloneCmplxs(s []complex128) []complex128 {
	out := make([]complex128, len(s))
	copy(out, s)
	return out
}

func complexSlice(s []float64) []complex128 {
	out := make([]complex128, len(s))
	for i, v := range s {
		out[i] = complex(v, 0)
	}
	return out
}

func addExtern(a, b any) any {
	switch x := canon(a).(type) {
	case float64:
		switch y := canon(b).(type) {
		case float64:
			return x + y
		case complex128:
			return complex(x, 0) + y
		case []float64:
			out := cloneFloats(y)
			floats.AddConst(x, out)
			return out
		case []complex128:
			out := cloneCmplxs(y)
			cmplxs.AddConst(complex(x, 0), out)
			return out
		}
	case complex128:
		switch y := canon(b).(type) {
		case float64:
			return x + complex(y, 0)
		case complex128:
			return x + y
		case []float64:
			out := complexSlice(y)
			cmplxs.AddConst(x, out)
			return out
		case []complex128:
			out := cloneCmplxs(y)
			cmplxs.AddConst(x, out)
			return out
		}
	case []float64:
		switch y := canon(b).(type) {
		case float64:
			out := cloneFloats(x)
			floats.AddConst(y, out)
			return out
		case complex128:
			out := complexSlice(x)
			cmplxs.AddConst(y, out)
			return out
		case []float64:
			out := cloneFloats(x)
			floats.Add(out, y)
			return out
		case []complex128:
			out := cloneCmplxs(y)
			cmplxs.Add(out, complexSlice(x))
			return out
		}
	case []complex128:
		switch y := canon(b).(type) {
		case float64:
			out := cloneCmplxs(x)
			cmplxs.AddConst(complex(y, 0), out)
			return out
		case complex128:
			out := cloneCmplxs(x)
			cmplxs.AddConst(y, out)
			return out
		case []float64:
			out := cloneCmplxs(x)
			cmplxs.Add(out, complexSlice(y))
			return out
		case []complex128:
			out := cloneCmplxs(x)
			cmplxs.Add(out, y)
			return out
		}
	}
	panic("diff: unreachable extern addition")
}

func mulExtern(a, b any) any {
	switch x := canon(a).(type) {
	case float64:
		switch y := canon(b).(type) {
		case float64:
			return x * y
		case complex128:
			return complex(x, 0) * y
		case []float64:
			out := cloneFloats(y)
			floats.Scale(x, out)
			return out
		case []complex128:
			out := cloneCmplxs(y)
			cmplxs.Scale(complex(x, 0), out)
			return out
		}
	case complex128:
		switch y := canon(b).(type) {
		case float64:
			return x * complex(y, 0)
		case complex128:
			return x * y
		case []float64:
			out := complexSlice(y)
			cmplxs.Scale(x, out)
			return out
		case []complex128:
			out := cloneCmplxs(y)
			cmplxs.Scale(x, out)
			return out
		}
	case []float64:
		switch y := canon(b).(type) {
		case float64:
			out := cloneFloats(x)
			floats.Scale(y, out)
			return out
		case complex128:
			out := complexSlice(x)
			cmplxs.Scale(y, out)
			return out
		case []float64:
			out := cloneFloats(x)
			floats.Mul(out, y)
			return out
		case []complex128:
			out := cloneCmplxs(y)
			cmplxs.Mul(out, complexSlice(x))
			return out
		}
	case []complex128:
		switch y := canon(b).(type) {
		case float64:
			out := cloneCmplxs(x)
			cmplxs.Scale(complex(y, 0), out)
			return out
		case complex128:
			out := cloneCmplxs(x)
			cmplxs.Scale(y, out)
			return out
		case []float64:
			out := cloneCmplxs(x)
			cmplxs.Mul(out, complexSlice(y))
			return out
		case []complex128:
			out := cloneCmplxs(x)
			cmplxs.Mul(out, y)
			return out
		}
	}
	panic("diff: unreachable extern multiplication")
}
