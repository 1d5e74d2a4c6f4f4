// Package rules implements the propagator abstraction, the frule/rrule
// lookup protocol, and the declarative rule generator of the chainrule
// protocol.
//
// A propagator is a pure callable that applies partial-derivative
// coefficients, fixed at construction, to incoming differential values.
// Propagators always return a tuple ([]any): a pushforward returns one
// differential per function output, a pullback returns a leading
// DoesNotExist marker (no derivative with respect to the function value
// itself) followed by one differential per function input.
package rules

import (
	"fmt"

	"github.com/born-ml/chainrule/internal/diff"
)

// Propagator applies closed-over partial-derivative coefficients to incoming
// differential values. Implementations own no mutable state and are pure
// functions of their inputs.
type Propagator interface {
	Propagate(deltas ...any) []any
}

// PropagateFunc adapts an ordinary function to the Propagator interface.
type PropagateFunc func(deltas ...any) []any

// Propagate calls f.
func (f PropagateFunc) Propagate(deltas ...any) []any {
	return f(deltas...)
}

// NoDerivative is the propagator for arguments that have no derivative.
// It ignores its inputs and always yields DoesNotExist.
type NoDerivative struct{}

// Propagate returns the DoesNotExist marker regardless of its inputs.
func (NoDerivative) Propagate(...any) []any {
	return []any{diff.DoesNotExist{}}
}

// Split pairs a propagator for the primal-derivative contribution with one
// for the conjugate-derivative contribution. Both run on every call and
// their results combine into a Wirtinger differential.
type Split struct {
	PrimalPart    Propagator
	ConjugatePart Propagator
}

// Propagate evaluates both parts and combines them.
func (s Split) Propagate(deltas ...any) []any {
	p := single(s.PrimalPart.Propagate(deltas...))
	c := single(s.ConjugatePart.Propagate(deltas...))
	return []any{diff.NewWirtinger(p, c)}
}

// NewSplit builds the propagator for a Wirtinger-declared derivative over
// the given primal domain. For a real-valued domain the split carries no
// information and the result collapses to a single summed propagator,
// mirroring diff.ForDomain.
func NewSplit(d diff.Domain, primal, conjugate Propagator) Propagator {
	if !d.IsReal() {
		return Split{PrimalPart: primal, ConjugatePart: conjugate}
	}
	return PropagateFunc(func(deltas ...any) []any {
		p := single(primal.Propagate(deltas...))
		c := single(conjugate.Propagate(deltas...))
		return []any{diff.Add(p, c)}
	})
}

// WithUpdater pairs a propagator with a dedicated in-place update function.
// AccumulateInto dispatches to the update function instead of the generic
// materialize-and-add path, letting a rule author avoid the intermediate
// allocation.
type WithUpdater struct {
	Propagator
	update func(acc any, deltas ...any) any
}

// NewWithUpdater attaches a dedicated in-place updater to a propagator.
// The updater must have the same semantics as adding the propagator's
// output into acc.
func NewWithUpdater(p Propagator, update func(acc any, deltas ...any) any) WithUpdater {
	if p == nil || update == nil {
		panic("rules: NewWithUpdater requires a propagator and an update function")
	}
	return WithUpdater{Propagator: p, update: update}
}

// Update applies the dedicated in-place path.
func (w WithUpdater) Update(acc any, deltas ...any) any {
	return w.update(acc, deltas...)
}

// single unwraps a one-element propagator tuple.
func single(outs []any) any {
	if len(outs) != 1 {
		panic(fmt.Sprintf("rules: expected a single-output propagator, got %d outputs", len(outs)))
	}
	return outs[0]
}
