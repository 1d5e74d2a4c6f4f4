// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package rules provides the chainrule lookup protocol and the declarative
// rule generator.
//
// A rule declares a function's derivatives once; forward-mode engines
// consume it through FRule and reverse-mode engines through RRule. Both
// return a propagator: a pure callable that applies the stored
// partial-derivative coefficients to incoming differentials.
//
// Declaring a rule:
//
//	func Cool(x, y float64) float64 { return x + y + 1 }
//
//	func init() {
//	    rules.MustDefine(rules.Rule{
//	        F: Cool,
//	        Partials: [][]rules.Deriv{{
//	            rules.Partial(func(*rules.Call) any { return 1.0 }),
//	            rules.Partial(func(*rules.Call) any { return 1.0 }),
//	        }},
//	    })
//	}
//
// Consuming it:
//
//	primal, pushforward, ok := rules.FRule(Cool, 2.0, 3.0)
//	if !ok {
//	    // no rule registered: fall back to another strategy
//	}
//	dz := pushforward.Propagate(diff.DoesNotExist{}, dx, dy)
package rules

import (
	"github.com/born-ml/chainrule/internal/diff"
	"github.com/born-ml/chainrule/internal/rules"
)

// Propagator applies stored partial-derivative coefficients to incoming
// differential values.
type Propagator = rules.Propagator

// PropagateFunc adapts an ordinary function to the Propagator interface.
type PropagateFunc = rules.PropagateFunc

// NoDerivative ignores its inputs and always yields DoesNotExist.
type NoDerivative = rules.NoDerivative

// Split pairs primal-part and conjugate-part propagators into a Wirtinger
// result.
type Split = rules.Split

// WithUpdater pairs a propagator with a dedicated in-place updater.
type WithUpdater = rules.WithUpdater

// NewSplit builds the propagator for a Wirtinger-declared derivative,
// collapsing to a summed propagator over real domains.
func NewSplit(d Domain, primal, conjugate Propagator) Propagator {
	return rules.NewSplit(d, primal, conjugate)
}

// NewWithUpdater attaches a dedicated in-place updater to a propagator.
func NewWithUpdater(p Propagator, update func(acc any, deltas ...any) any) WithUpdater {
	return rules.NewWithUpdater(p, update)
}

// Domain re-exports the diff domain type used by NewSplit.
type Domain = diff.Domain

// Accumulate returns current + p(deltas...) under the differential algebra.
func Accumulate(current any, p Propagator, deltas ...any) any {
	return rules.Accumulate(current, p, deltas...)
}

// AccumulateInto adds p(deltas...) into a caller-owned accumulator in place.
func AccumulateInto(acc any, p Propagator, deltas ...any) any {
	return rules.AccumulateInto(acc, p, deltas...)
}

// Store evaluates p(deltas...) and overwrites the accumulator's storage.
func Store(acc any, p Propagator, deltas ...any) any {
	return rules.Store(acc, p, deltas...)
}

// Class is an argument type constraint for rule dispatch.
type Class = rules.Class

// Argument constraint classes.
const (
	Number       Class = rules.Number
	Real         Class = rules.Real
	Complex      Class = rules.Complex
	Integer      Class = rules.Integer
	Array        Class = rules.Array
	RealArray    Class = rules.RealArray
	ComplexArray Class = rules.ComplexArray
)

// Impl is a registered rule implementation.
type Impl = rules.Impl

// RegisterFRule registers a hand-written forward-mode rule.
func RegisterFRule(f any, classes []Class, impl Impl) error {
	return rules.RegisterFRule(f, classes, impl)
}

// RegisterRRule registers a hand-written reverse-mode rule.
func RegisterRRule(f any, classes []Class, impl Impl) error {
	return rules.RegisterRRule(f, classes, impl)
}

// FRule looks up a forward-mode rule for calling f with args.
func FRule(f any, args ...any) (primal any, pushforward Propagator, ok bool) {
	return rules.FRule(f, args...)
}

// RRule looks up a reverse-mode rule for calling f with args.
func RRule(f any, args ...any) (primal any, pullback Propagator, ok bool) {
	return rules.RRule(f, args...)
}

// Rule is the declarative description of a function's derivatives.
type Rule = rules.Rule

// Call is the primal-call context partial expressions run in.
type Call = rules.Call

// Deriv is one declared partial derivative.
type Deriv = rules.Deriv

// Partial computes one ∂output/∂input coefficient.
type Partial = rules.Partial

// SplitPartial declares a Wirtinger partial derivative.
type SplitPartial = rules.SplitPartial

// ErrBadRule wraps every definition-time rejection reported by Define.
var ErrBadRule = rules.ErrBadRule

// Define validates a declarative rule and registers the generated frule and
// rrule implementations.
func Define(r Rule) error {
	return rules.Define(r)
}

// MustDefine is Define for program-setup contexts where a bad rule is fatal.
func MustDefine(r Rule) {
	rules.MustDefine(r)
}
