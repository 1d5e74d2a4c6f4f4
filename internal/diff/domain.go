package diff

// Domain classifies the value domain of a primal argument. It drives the
// real/Wirtinger collapse rule: a Wirtinger derivative of a function whose
// inputs are all real-valued carries no extra information and folds to the
// sum of its parts.
type Domain int

// Supported primal domains.
const (
	Unknown Domain = iota
	Real
	Complex
	RealArray
	ComplexArray
)

// String returns a human-readable name for the domain.
func (d Domain) String() string {
	switch d {
	case Real:
		return "Real"
	case Complex:
		return "Complex"
	case RealArray:
		return "RealArray"
	case ComplexArray:
		return "ComplexArray"
	default:
		return "Unknown"
	}
}

// IsReal reports whether every value in the domain is real-valued.
func (d Domain) IsReal() bool {
	return d == Real || d == RealArray
}

// DomainOf classifies an ordinary Go value. Integer kinds are real-valued.
// Differential variants and non-numeric values classify as Unknown.
func DomainOf(v any) Domain {
	switch v.(type) {
	case float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return Real
	case complex64, complex128:
		return Complex
	case []float64:
		return RealArray
	case []complex128:
		return ComplexArray
	default:
		return Unknown
	}
}

// Promote combines argument domains into the domain of their common
// promotion: any complex domain makes the result complex, any array domain
// makes it an array domain, and any Unknown poisons the result. Promote of
// no domains is Unknown.
func Promote(ds ...Domain) Domain {
	if len(ds) == 0 {
		return Unknown
	}
	isComplex := false
	isArray := false
	for _, d := range ds {
		switch d {
		case Unknown:
			return Unknown
		case Complex:
			isComplex = true
		case RealArray:
			isArray = true
		case ComplexArray:
			isComplex = true
			isArray = true
		}
	}
	switch {
	case isComplex && isArray:
		return ComplexArray
	case isComplex:
		return Complex
	case isArray:
		return RealArray
	default:
		return Real
	}
}

// ForDomain applies the domain-aware collapse rule: a Wirtinger differential
// over a real-valued domain folds to the sum of its primal and conjugate
// parts. Every other (value, domain) combination passes through unchanged.
func ForDomain(d Domain, v any) any {
	w, ok := v.(Wirtinger)
	if !ok || !d.IsReal() {
		return v
	}
	return Add(w.primal, w.conjugate)
}
