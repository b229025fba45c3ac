package params

import "errors"

var (
	// ErrDecode indicates a payload that is not a valid parameter set encoding.
	ErrDecode = errors.New("failed to decode parameter set")
	// ErrShapeMismatch indicates parameter sets whose layers or tensor shapes differ.
	ErrShapeMismatch = errors.New("parameter set shape mismatch")
)
