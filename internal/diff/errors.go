package diff

import "errors"

var (
	// ErrNotWirtinger indicates a Wirtinger part accessor was applied to a
	// value that is not a Wirtinger differential.
	ErrNotWirtinger = errors.New("diff: value is not a Wirtinger differential")
	// ErrWirtingerExtern indicates an attempt to extract a single concrete
	// value from a Wirtinger differential without choosing the primal or
	// conjugate part explicitly.
	ErrWirtingerExtern = errors.New("diff: Wirtinger differential is ambiguous, take the primal or conjugate part explicitly")
	// ErrDoesNotExist indicates an attempt to extract a concrete value from
	// a derivative that does not exist.
	ErrDoesNotExist = errors.New("diff: derivative does not exist")
)
