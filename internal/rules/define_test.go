package rules

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/chainrule/internal/diff"
)

// Top-level rule targets. Define rejects anything that is not a plain named
// function, so every scenario declares its own.
func dummyIdentity(x float64) float64 { return x }
func cool(x, y float64) float64       { return x + y + 1 }
func myabs2(x any) any {
	switch v := x.(type) {
	case complex128:
		return v * cmplx.Conj(v)
	case float64:
		return v * v
	default:
		panic("myabs2: unsupported argument")
	}
}
func sincos(x float64) (float64, float64) { return math.Sin(x), math.Cos(x) }
func cube(x float64) float64              { return x * x * x }
func lazyTarget(x float64) float64        { return x }
func arityTarget(x float64) float64       { return x }
func defErrTarget(x float64) float64      { return x }
func defErrTwoIn(x, y float64) float64    { return x + y }
func defTakenTarget(x float64) float64    { return x }
func variadicTarget(xs ...float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func one(*Call) any { return diff.One{} }

func conjOf(v any) any {
	if z, ok := v.(complex128); ok {
		return cmplx.Conj(z)
	}
	return v
}

func TestDefine_IdentityRule(t *testing.T) {
	require.NoError(t, Define(Rule{F: dummyIdentity, Partial: Partial(one)}))

	primal, pf, ok := FRule(dummyIdentity, 2.5)
	require.True(t, ok)
	assert.Equal(t, 2.5, primal)
	assert.Equal(t, []any{3.0}, pf.Propagate(diff.DoesNotExist{}, 3.0))

	primal, pb, ok := RRule(dummyIdentity, 2.5)
	require.True(t, ok)
	assert.Equal(t, 2.5, primal)
	assert.Equal(t, []any{diff.DoesNotExist{}, 3.0}, pb.Propagate(3.0))
}

func TestDefine_TwoArgumentRule(t *testing.T) {
	require.NoError(t, Define(Rule{
		F: cool,
		Partials: [][]Deriv{{
			Partial(func(*Call) any { return 1.0 }),
			Partial(func(*Call) any { return 1.0 }),
		}},
	}))

	primal, pf, ok := FRule(cool, 2.0, 3.0)
	require.True(t, ok)
	assert.Equal(t, 6.0, primal)

	// (placeholder, Δx, Δy) -> (Δx + Δy,)
	assert.Equal(t, []any{9.0}, pf.Propagate(diff.DoesNotExist{}, 4.0, 5.0))

	_, pb, ok := RRule(cool, 2.0, 3.0)
	require.True(t, ok)
	got := pb.Propagate(4.0)
	want := []any{diff.DoesNotExist{}, 4.0, 4.0}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("pullback tuple mismatch (-want +got):\n%s", d)
	}
}

func TestDefine_WirtingerRule(t *testing.T) {
	require.NoError(t, Define(Rule{
		F: myabs2,
		Partial: SplitPartial{
			PrimalPart:    Partial(func(c *Call) any { return conjOf(c.Arg(0)) }),
			ConjugatePart: Partial(func(c *Call) any { return c.Arg(0) }),
		},
	}))

	// Real argument: the split collapses to Δ * (x + x).
	x := 3.0
	primal, pf, ok := FRule(myabs2, x)
	require.True(t, ok)
	assert.Equal(t, 9.0, primal)
	assert.Equal(t, []any{12.0}, pf.Propagate(diff.DoesNotExist{}, 2.0))

	// Complex argument: the split survives as Wirtinger(Δ*conj(z), Δ*z).
	z := complex(1, 2)
	primal, pf, ok = FRule(myabs2, z)
	require.True(t, ok)
	assert.Equal(t, z*cmplx.Conj(z), primal)
	assert.Equal(t,
		[]any{diff.NewWirtinger(2.0*cmplx.Conj(z), 2.0*z)},
		pf.Propagate(diff.DoesNotExist{}, 2.0))

	// Pullback mirrors the same collapse rule.
	_, pb, ok := RRule(myabs2, x)
	require.True(t, ok)
	assert.Equal(t, []any{diff.DoesNotExist{}, 12.0}, pb.Propagate(2.0))

	_, pb, ok = RRule(myabs2, z)
	require.True(t, ok)
	assert.Equal(t,
		[]any{diff.DoesNotExist{}, diff.NewWirtinger(2.0*cmplx.Conj(z), 2.0*z)},
		pb.Propagate(2.0))
}

func TestDefine_MultiOutputRule(t *testing.T) {
	require.NoError(t, Define(Rule{
		F: sincos,
		Partials: [][]Deriv{
			{Partial(func(c *Call) any { return math.Cos(c.Arg(0).(float64)) })},
			{Partial(func(c *Call) any { return -math.Sin(c.Arg(0).(float64)) })},
		},
	}))

	x := 0.5
	primal, pf, ok := FRule(sincos, x)
	require.True(t, ok)
	assert.Equal(t, []any{math.Sin(x), math.Cos(x)}, primal)

	outs := pf.Propagate(diff.DoesNotExist{}, 2.0)
	require.Len(t, outs, 2)
	assert.InDelta(t, 2*math.Cos(x), outs[0].(float64), 1e-12)
	assert.InDelta(t, -2*math.Sin(x), outs[1].(float64), 1e-12)

	// Pullback runs the transposed dot product: Δ1*cos(x) + Δ2*(-sin(x)).
	_, pb, ok := RRule(sincos, x)
	require.True(t, ok)
	ins := pb.Propagate(2.0, 3.0)
	require.Len(t, ins, 2)
	assert.Equal(t, diff.DoesNotExist{}, ins[0])
	assert.InDelta(t, 2*math.Cos(x)-3*math.Sin(x), ins[1].(float64), 1e-12)
}

func TestDefine_SetupRunsOncePerLookup(t *testing.T) {
	setups := 0
	require.NoError(t, Define(Rule{
		F: cube,
		Setup: func(c *Call) {
			setups++
			x := c.Arg(0).(float64)
			c.Set("slope", 3*x*x)
		},
		Partial: Partial(func(c *Call) any { return c.Get("slope") }),
	}))

	primal, pf, ok := FRule(cube, 2.0)
	require.True(t, ok)
	assert.Equal(t, 8.0, primal)
	assert.Equal(t, 1, setups)

	// Two pushforward evaluations reuse the same setup results.
	assert.Equal(t, []any{12.0}, pf.Propagate(diff.DoesNotExist{}, 1.0))
	assert.Equal(t, []any{24.0}, pf.Propagate(diff.DoesNotExist{}, 2.0))
	assert.Equal(t, 1, setups)

	_, _, ok = RRule(cube, 2.0)
	require.True(t, ok)
	assert.Equal(t, 2, setups)
}

func TestDefine_SetupSeesPrimalResult(t *testing.T) {
	require.NoError(t, Define(Rule{
		F: arityTarget,
		Setup: func(c *Call) {
			c.Set("primal_copy", c.Primal)
		},
		Partial: Partial(func(c *Call) any { return c.Get("primal_copy") }),
	}))

	_, pf, ok := FRule(arityTarget, 7.0)
	require.True(t, ok)
	assert.Equal(t, []any{7.0}, pf.Propagate(diff.DoesNotExist{}, 1.0))

	// Seed-count mismatches are caller bugs and panic.
	assert.Panics(t, func() { pf.Propagate(1.0) })
}

func TestDefine_ZeroSeedShortCircuitsPartials(t *testing.T) {
	require.NoError(t, Define(Rule{
		F: lazyTarget,
		Partial: Partial(func(*Call) any {
			t.Fatal("partial must not be evaluated for a Zero seed")
			return nil
		}),
	}))

	_, pf, ok := FRule(lazyTarget, 1.0)
	require.True(t, ok)
	assert.Equal(t, []any{diff.Zero{}}, pf.Propagate(diff.DoesNotExist{}, diff.Zero{}))
}

func TestDefine_DefinitionTimeErrors(t *testing.T) {
	p := Partial(one)

	tests := []struct {
		name string
		rule Rule
	}{
		{"missing function", Rule{Partial: p}},
		{"non-function target", Rule{F: 42, Partial: p}},
		{"closure target", Rule{F: func(x float64) float64 { return x }, Partial: p}},
		{"variadic target", Rule{F: variadicTarget, Partial: p}},
		{"no partials", Rule{F: defErrTarget}},
		{"both partial forms", Rule{F: defErrTarget, Partial: p, Partials: [][]Deriv{{p}}}},
		{"bare partial with two inputs", Rule{F: defErrTwoIn, Partial: p}},
		{"row length mismatch", Rule{F: defErrTwoIn, Partials: [][]Deriv{{p}}}},
		{"nil partial entry", Rule{F: defErrTarget, Partials: [][]Deriv{{nil}}}},
		{"output count mismatch", Rule{F: defErrTarget, Partials: [][]Deriv{{p}, {p}}}},
		{"constraint count mismatch", Rule{F: defErrTarget, In: []Class{Real, Real}, Partial: p}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Define(tt.rule)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBadRule)
		})
	}

	// None of the rejected declarations may have registered anything.
	_, _, ok := FRule(defErrTarget, 1.0)
	assert.False(t, ok)
}

func TestDefine_TakenPatternRegistersNeitherDirection(t *testing.T) {
	// Only the reverse-mode slot is taken by a hand-written rule. Define
	// must still refuse the whole declaration and leave the forward-mode
	// table untouched, never a generated frule without its rrule twin.
	require.NoError(t, RegisterRRule(defTakenTarget, nil, identityImpl))

	err := Define(Rule{F: defTakenTarget, Partial: Partial(one)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRule)
	assert.Contains(t, err.Error(), "duplicate rule")

	_, _, ok := FRule(defTakenTarget, 1.0)
	assert.False(t, ok)
}

func TestDefine_BoundMethodIsRejected(t *testing.T) {
	var b bytesLike
	err := Define(Rule{F: b.Value, Partial: Partial(one)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRule)
}

type bytesLike struct{ v float64 }

func (b bytesLike) Value(x float64) float64 { return b.v * x }

func TestMustDefine_PanicsOnBadRule(t *testing.T) {
	assert.Panics(t, func() { MustDefine(Rule{}) })
}

func TestIsNamedFunc(t *testing.T) {
	assert.True(t, isNamedFunc(dummyIdentity))
	assert.False(t, isNamedFunc(func() {}))
	var b bytesLike
	assert.False(t, isNamedFunc(b.Value))
}
