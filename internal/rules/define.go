package rules

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/born-ml/chainrule/internal/diff"
)

// Call is the primal-call context a partial-derivative expression runs in.
// It carries the live arguments, the just-computed primal result, and a
// scratch store that a Rule's Setup hook uses to share intermediates with
// the partial expressions.
type Call struct {
	Args   []any
	Primal any

	vars map[string]any
}

// Arg returns the i-th primal argument.
func (c *Call) Arg(i int) any {
	return c.Args[i]
}

// Set stores a setup intermediate under key.
func (c *Call) Set(key string, v any) {
	if c.vars == nil {
		c.vars = make(map[string]any)
	}
	c.vars[key] = v
}

// Get returns the setup intermediate stored under key, or nil.
func (c *Call) Get(key string) any {
	return c.vars[key]
}

// Deriv is one declared partial derivative: either a plain Partial or a
// SplitPartial carrying separate primal/conjugate (Wirtinger) parts.
type Deriv interface {
	isDeriv()
}

// Partial computes one ∂output/∂input coefficient from the primal-call
// context. The coefficient may be any differential value, including One,
// Zero, or a Wirtinger built explicitly.
type Partial func(c *Call) any

func (Partial) isDeriv() {}

// SplitPartial declares a Wirtinger partial derivative: separate coefficient
// expressions for the primal and conjugate parts. When any input of an
// output's partial row is split, the generated propagators sum the
// primal-weighted and conjugate-weighted contributions separately and apply
// the real-domain collapse rule to the pair.
type SplitPartial struct {
	PrimalPart    Partial
	ConjugatePart Partial
}

func (SplitPartial) isDeriv() {}

// Rule is the declarative description of a function's derivatives. Define
// turns one Rule into registered frule and rrule implementations.
type Rule struct {
	// F is the target function. It must be a plain named top-level
	// function: function literals and bound methods are rejected because
	// the propagator calling convention has no slot for per-call function
	// state.
	F any

	// In constrains the argument types used for dispatch, one Class per
	// input. Nil defaults every input to Number.
	In []Class

	// Setup runs once per rule invocation, after the primal result is
	// computed and before any partial is evaluated. It may stash
	// intermediates on the Call for the partials to reuse.
	Setup func(c *Call)

	// Partials holds one row per function output, one Deriv per input.
	Partials [][]Deriv

	// Partial is a shorthand for the one-input, one-output case: a single
	// bare derivative instead of a 1x1 Partials grid. Setting both Partial
	// and Partials, or using the shorthand with a multi-input function, is
	// a definition-time error.
	Partial Deriv
}

// ErrBadRule wraps every definition-time rejection reported by Define.
var ErrBadRule = errors.New("rules: invalid rule definition")

// Define validates a declarative rule and registers the generated frule and
// rrule implementations. All misuse is rejected here, at definition time,
// never deferred to call time.
func Define(r Rule) error {
	if r.F == nil {
		return fmt.Errorf("%w: missing target function", ErrBadRule)
	}
	ft := reflect.TypeOf(r.F)
	if ft == nil || ft.Kind() != reflect.Func {
		return fmt.Errorf("%w: target must be a function, got %T", ErrBadRule, r.F)
	}
	if !isNamedFunc(r.F) {
		return fmt.Errorf("%w: %s is a closure or bound method, only plain named functions are supported",
			ErrBadRule, funcName(r.F))
	}
	if ft.IsVariadic() {
		return fmt.Errorf("%w: %s is variadic, declare a fixed-arity rule target", ErrBadRule, funcName(r.F))
	}

	nIn := ft.NumIn()
	partials, err := normalizePartials(r, nIn)
	if err != nil {
		return err
	}
	if ft.NumOut() != len(partials) {
		return fmt.Errorf("%w: %s returns %d values but %d partial rows were declared",
			ErrBadRule, funcName(r.F), ft.NumOut(), len(partials))
	}

	classes := r.In
	if classes == nil {
		classes = make([]Class, nIn) // all Number
	}
	if len(classes) != nIn {
		return fmt.Errorf("%w: %s takes %d inputs but %d constraints were declared",
			ErrBadRule, funcName(r.F), nIn, len(classes))
	}

	// Both tables are checked up front so a rejected definition never leaves
	// one direction registered without the other.
	if frules.hasPattern(r.F, classes) || rrules.hasPattern(r.F, classes) {
		return fmt.Errorf("%w: duplicate rule for %s%v", ErrBadRule, funcName(r.F), classes)
	}

	g := &generated{
		f:        r.F,
		name:     funcName(r.F),
		setup:    r.Setup,
		partials: partials,
		nIn:      nIn,
	}
	if err := RegisterFRule(r.F, classes, g.frule); err != nil {
		return err
	}
	return RegisterRRule(r.F, classes, g.rrule)
}

// MustDefine is Define for program-setup contexts where a bad rule is fatal.
func MustDefine(r Rule) {
	if err := Define(r); err != nil {
		panic(err)
	}
}

func normalizePartials(r Rule, nIn int) ([][]Deriv, error) {
	if r.Partial != nil {
		if r.Partials != nil {
			return nil, fmt.Errorf("%w: set either Partial or Partials, not both", ErrBadRule)
		}
		if nIn != 1 {
			return nil, fmt.Errorf("%w: bare Partial shorthand requires exactly one input, %s takes %d",
				ErrBadRule, funcName(r.F), nIn)
		}
		return [][]Deriv{{r.Partial}}, nil
	}
	if len(r.Partials) == 0 {
		return nil, fmt.Errorf("%w: at least one output's partials must be declared", ErrBadRule)
	}
	for o, row := range r.Partials {
		if len(row) != nIn {
			return nil, fmt.Errorf("%w: output %d declares %d partials but %s takes %d inputs",
				ErrBadRule, o, len(row), funcName(r.F), nIn)
		}
		for i, d := range row {
			if d == nil {
				return nil, fmt.Errorf("%w: output %d input %d has a nil partial", ErrBadRule, o, i)
			}
		}
	}
	return r.Partials, nil
}

// generated holds the validated rule description the emitted frule and rrule
// implementations close over.
type generated struct {
	f        any
	name     string
	setup    func(*Call)
	partials [][]Deriv
	nIn      int
}

// prepare computes the primal result, runs the setup hook, and promotes the
// input domain once for the Wirtinger-collapse decisions.
func (g *generated) prepare(args []any) (*Call, diff.Domain) {
	c := &Call{Args: args, Primal: callPrimal(g.f, args)}
	if g.setup != nil {
		g.setup(c)
	}
	ds := make([]diff.Domain, len(args))
	for i, a := range args {
		ds[i] = diff.DomainOf(a)
	}
	return c, diff.Promote(ds...)
}

func (g *generated) frule(args ...any) (any, Propagator) {
	c, domain := g.prepare(args)
	pf := PropagateFunc(func(deltas ...any) []any {
		if len(deltas) != g.nIn+1 {
			panic(fmt.Sprintf("rules: pushforward for %s expects %d seeds (self plus one per input), got %d",
				g.name, g.nIn+1, len(deltas)))
		}
		dargs := deltas[1:]
		outs := make([]any, len(g.partials))
		for o, row := range g.partials {
			outs[o] = dotProduct(c, domain, row, dargs)
		}
		return outs
	})
	return c.Primal, pf
}

func (g *generated) rrule(args ...any) (any, Propagator) {
	c, domain := g.prepare(args)
	pb := PropagateFunc(func(deltas ...any) []any {
		if len(deltas) != len(g.partials) {
			panic(fmt.Sprintf("rules: pullback for %s expects %d seeds (one per output), got %d",
				g.name, len(g.partials), len(deltas)))
		}
		outs := make([]any, g.nIn+1)
		outs[0] = diff.DoesNotExist{}
		col := make([]Deriv, len(g.partials))
		for i := 0; i < g.nIn; i++ {
			// Transposed indexing: input i's pullback partials are the
			// i-th entry of every output's row.
			for o, row := range g.partials {
				col[o] = row[i]
			}
			outs[i+1] = dotProduct(c, domain, col, deltas)
		}
		return outs
	})
	return c.Primal, pb
}

// dotProduct folds one partial row with the incoming differentials. Every
// coefficient is wrapped in a Thunk so a Zero or DoesNotExist seed
// short-circuits the multiply without evaluating the coefficient. A row
// containing any SplitPartial is decomposed into separately summed
// primal-weighted and conjugate-weighted contributions, then run through the
// domain collapse rule.
func dotProduct(c *Call, domain diff.Domain, row []Deriv, deltas []any) any {
	if !hasSplit(row) {
		var sum any = diff.Zero{}
		for i, d := range row {
			p := d.(Partial)
			sum = diff.Add(sum, diff.Mul(lazily(p, c), deltas[i]))
		}
		return sum
	}

	var sumP, sumC any = diff.Zero{}, diff.Zero{}
	for i, d := range row {
		switch p := d.(type) {
		case SplitPartial:
			sumP = diff.Add(sumP, diff.Mul(lazily(p.PrimalPart, c), deltas[i]))
			sumC = diff.Add(sumC, diff.Mul(lazily(p.ConjugatePart, c), deltas[i]))
		case Partial:
			// A plain partial is Wirtinger(p, Zero): it contributes to
			// the primal-weighted sum only.
			sumP = diff.Add(sumP, diff.Mul(lazily(p, c), deltas[i]))
		}
	}
	return diff.ForDomain(domain, diff.NewWirtinger(sumP, sumC))
}

func hasSplit(row []Deriv) bool {
	for _, d := range row {
		if _, ok := d.(SplitPartial); ok {
			return true
		}
	}
	return false
}

func lazily(p Partial, c *Call) diff.Thunk {
	return diff.Defer(func() any { return p(c) })
}

// callPrimal invokes the rule target with the live arguments through
// reflection, converting assignable numeric kinds. A multi-output target
// yields a []any tuple.
func callPrimal(f any, args []any) any {
	fv := reflect.ValueOf(f)
	ft := fv.Type()
	if len(args) != ft.NumIn() {
		panic(fmt.Sprintf("rules: %s takes %d arguments, got %d", funcName(f), ft.NumIn(), len(args)))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		av := reflect.ValueOf(a)
		pt := ft.In(i)
		switch {
		case pt.Kind() == reflect.Interface, av.Type() == pt:
			in[i] = av
		case av.Type().ConvertibleTo(pt):
			in[i] = av.Convert(pt)
		default:
			panic(fmt.Sprintf("rules: cannot pass %T as argument %d of %s", a, i, funcName(f)))
		}
	}
	outs := fv.Call(in)
	if len(outs) == 1 {
		return outs[0].Interface()
	}
	tuple := make([]any, len(outs))
	for i, o := range outs {
		tuple[i] = o.Interface()
	}
	return tuple
}
