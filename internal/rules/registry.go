package rules

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Class is an argument type constraint for rule dispatch. Constraints form a
// small lattice: Integer and Real and Complex are each subtypes of Number,
// Integer is a subtype of Real, and RealArray and ComplexArray are each
// subtypes of Array. Scalar and array classes are disjoint.
type Class int

// Argument constraint classes.
const (
	// Number matches any number-like scalar. It is the default constraint
	// for unannotated rule inputs.
	Number Class = iota
	// Real matches real-valued scalars, including integers.
	Real
	// Complex matches complex scalars.
	Complex
	// Integer matches integer scalars.
	Integer
	// Array matches any numeric array.
	Array
	// RealArray matches real-valued arrays.
	RealArray
	// ComplexArray matches complex-valued arrays.
	ComplexArray
)

// String returns the constraint name.
func (c Class) String() string {
	switch c {
	case Number:
		return "Number"
	case Real:
		return "Real"
	case Complex:
		return "Complex"
	case Integer:
		return "Integer"
	case Array:
		return "Array"
	case RealArray:
		return "RealArray"
	case ComplexArray:
		return "ComplexArray"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// subsumes reports whether a value classified as o satisfies constraint c.
func (c Class) subsumes(o Class) bool {
	if c == o {
		return true
	}
	switch c {
	case Number:
		return o == Real || o == Complex || o == Integer
	case Real:
		return o == Integer
	case Array:
		return o == RealArray || o == ComplexArray
	default:
		return false
	}
}

// classOf returns the most specific class of a concrete argument value.
// Non-numeric values match no constraint.
func classOf(v any) (Class, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Integer, true
	case float32, float64:
		return Real, true
	case complex64, complex128:
		return Complex, true
	case []float64, []float32:
		return RealArray, true
	case []complex128, []complex64:
		return ComplexArray, true
	default:
		return 0, false
	}
}

// Impl is a registered rule implementation: given the live primal arguments
// it returns the primal result and a propagator (a pushforward for frules, a
// pullback for rrules).
type Impl func(args ...any) (primal any, p Propagator)

type entry struct {
	classes []Class
	impl    Impl
}

// table is a rule registry keyed by function identity. Registration happens
// at program setup; lookups only take the read lock and are safe for
// concurrent use from independent evaluation goroutines.
type table struct {
	mu sync.RWMutex
	m  map[uintptr][]entry
}

var (
	frules = &table{m: make(map[uintptr][]entry)}
	rrules = &table{m: make(map[uintptr][]entry)}
)

// funcKey returns the identity key of a function value.
func funcKey(f any) uintptr {
	v := reflect.ValueOf(f)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		panic(fmt.Sprintf("rules: rule target must be a non-nil function, got %T", f))
	}
	return v.Pointer()
}

// funcName returns the symbolic name of a function value, for diagnostics.
func funcName(f any) string {
	name := runtime.FuncForPC(funcKey(f)).Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// isNamedFunc reports whether f is a plain top-level named function.
// Function literals get compiler-assigned names like "pkg.Caller.func1" and
// bound method values end in "-fm"; both may carry captured state, for which
// the generated propagator signature has no slot.
func isNamedFunc(f any) bool {
	name := funcName(f)
	if strings.HasSuffix(name, "-fm") {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if strings.HasPrefix(part, "func") {
			rest := part[len("func"):]
			if rest != "" && strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
				return false
			}
		}
	}
	return true
}

func (t *table) register(f any, classes []Class, impl Impl) error {
	key := funcKey(f)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.m[key] {
		if samePattern(e.classes, classes) {
			return fmt.Errorf("rules: duplicate rule for %s%v", funcName(f), classes)
		}
	}
	t.m[key] = append(t.m[key], entry{classes: classes, impl: impl})
	return nil
}

func (t *table) hasPattern(f any, classes []Class) bool {
	key := funcKey(f)
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.m[key] {
		if samePattern(e.classes, classes) {
			return true
		}
	}
	return false
}

// lookup resolves the most specific registered rule for the concrete call.
// Two applicable rules with incomparable patterns that no third applicable
// rule refines are an ambiguity and panic; no applicable rule is the
// first-class "no rule" outcome.
func (t *table) lookup(f any, args []any) (any, Propagator, bool) {
	key := funcKey(f)
	t.mu.RLock()
	entries := t.m[key]
	t.mu.RUnlock()
	if len(entries) == 0 {
		return nil, nil, false
	}

	concrete := make([]Class, len(args))
	for i, a := range args {
		c, ok := classOf(a)
		if !ok {
			return nil, nil, false
		}
		concrete[i] = c
	}

	var applicable []entry
	for _, e := range entries {
		if matches(e.classes, concrete) {
			applicable = append(applicable, e)
		}
	}
	if len(applicable) == 0 {
		return nil, nil, false
	}

	// Keep the most specific applicable entries: those no other applicable
	// entry strictly refines. Resolution must not depend on registration
	// order, so every pair is considered before declaring an ambiguity.
	var mostSpecific []entry
	for i, e := range applicable {
		dominated := false
		for j, o := range applicable {
			if i != j && strictlyMoreSpecific(o.classes, e.classes) {
				dominated = true
				break
			}
		}
		if !dominated {
			mostSpecific = append(mostSpecific, e)
		}
	}
	if len(mostSpecific) > 1 {
		panic(fmt.Sprintf("rules: ambiguous rules for %s: %v and %v both match %v",
			funcName(f), mostSpecific[0].classes, mostSpecific[1].classes, concrete))
	}
	primal, p := mostSpecific[0].impl(args...)
	return primal, p, true
}

func matches(pattern, concrete []Class) bool {
	if len(pattern) != len(concrete) {
		return false
	}
	for i, c := range pattern {
		if !c.subsumes(concrete[i]) {
			return false
		}
	}
	return true
}

func samePattern(a, b []Class) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// strictlyMoreSpecific reports whether pattern a is a strict refinement of b.
func strictlyMoreSpecific(a, b []Class) bool {
	if len(a) != len(b) || samePattern(a, b) {
		return false
	}
	for i := range a {
		if !b[i].subsumes(a[i]) {
			return false
		}
	}
	return true
}

// RegisterFRule registers a hand-written forward-mode rule for f under the
// given argument constraint pattern. A nil pattern defaults every argument
// to Number. Registering the same pattern twice is a definition-time error.
func RegisterFRule(f any, classes []Class, impl Impl) error {
	funcKey(f) // validate the target before inspecting its type
	return frules.register(f, normalizePattern(f, classes), impl)
}

// RegisterRRule registers a hand-written reverse-mode rule for f. See
// RegisterFRule.
func RegisterRRule(f any, classes []Class, impl Impl) error {
	funcKey(f) // validate the target before inspecting its type
	return rrules.register(f, normalizePattern(f, classes), impl)
}

func normalizePattern(f any, classes []Class) []Class {
	if classes != nil {
		return classes
	}
	ft := reflect.TypeOf(f)
	out := make([]Class, ft.NumIn())
	return out // all Number
}

// FRule looks up a forward-mode rule for calling f with args. When a rule
// exists it returns the primal result f(args...) and a pushforward
// propagator; ok reports whether any rule matched. Absence of a rule is not
// an error: callers branch on ok and fall back to another differentiation
// strategy.
//
// The pushforward takes one differential per argument, preceded by a
// placeholder for the function's own internal state, and returns one
// differential per function output.
func FRule(f any, args ...any) (primal any, pushforward Propagator, ok bool) {
	return frules.lookup(f, args)
}

// RRule looks up a reverse-mode rule for calling f with args. When a rule
// exists it returns the primal result f(args...) and a pullback propagator;
// ok reports whether any rule matched.
//
// The pullback takes one differential per function output and returns a
// tuple beginning with the DoesNotExist marker (no derivative with respect
// to the function value itself) followed by one differential per argument.
func RRule(f any, args ...any) (primal any, pullback Propagator, ok bool) {
	return rrules.lookup(f, args)
}
