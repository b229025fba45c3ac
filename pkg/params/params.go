// Package params holds the trainable state of a model: a set of named layers,
// each carrying a weight tensor and a 1-D bias tensor.
package params

import (
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// MaxTensorElements bounds the number of values a single tensor may hold.
const MaxTensorElements = math.MaxInt32

// Tensor is a dense row-major array of float64 values.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NewTensor returns a zero-filled tensor of the given shape, which must have
// positive dimensions.
func NewTensor(shape ...int) Tensor {
	return Tensor{
		Shape: slices.Clone(shape),
		Data:  make([]float64, numElements(shape)),
	}
}

// Len returns the number of elements the shape describes, or -1 when the
// shape has a non-positive dimension or more than MaxTensorElements values.
func (t Tensor) Len() int {
	return numElements(t.Shape)
}

func (t Tensor) clone() Tensor {
	return Tensor{
		Shape: slices.Clone(t.Shape),
		Data:  slices.Clone(t.Data),
	}
}

func (t Tensor) validate() error {
	if len(t.Shape) == 0 {
		return fmt.Errorf("empty shape")
	}
	for _, d := range t.Shape {
		if d <= 0 {
			return fmt.Errorf("invalid dimension %d in shape %v", d, t.Shape)
		}
	}
	if t.Len() < 0 {
		return fmt.Errorf("shape %v exceeds %d values", t.Shape, MaxTensorElements)
	}
	if len(t.Data) != t.Len() {
		return fmt.Errorf("shape %v needs %d values, got %d", t.Shape, t.Len(), len(t.Data))
	}

	return nil
}

// Layer is the trainable state of one layer.
type Layer struct {
	Weight Tensor
	Bias   Tensor
}

// ParameterSet maps a layer name to its weights and bias.
//
// A ParameterSet is treated as a value: once it is handed to the transport or
// queued for aggregation nobody writes to it. Functions in this package never
// modify their inputs.
type ParameterSet map[string]Layer

// Names returns the layer names in ascending order.
func (ps ParameterSet) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// NumParams returns the total number of scalar parameters.
func (ps ParameterSet) NumParams() int {
	n := 0
	for _, l := range ps {
		n += len(l.Weight.Data) + len(l.Bias.Data)
	}

	return n
}

// Clone returns a deep copy.
func (ps ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(ps))
	for name, l := range ps {
		out[name] = Layer{Weight: l.Weight.clone(), Bias: l.Bias.clone()}
	}

	return out
}

// Validate checks that every tensor is consistent with its shape and that
// biases are one dimensional.
func (ps ParameterSet) Validate() error {
	if len(ps) == 0 {
		return fmt.Errorf("no layers")
	}
	for _, name := range ps.Names() {
		l := ps[name]
		if name == "" {
			return fmt.Errorf("empty layer name")
		}
		if err := l.Weight.validate(); err != nil {
			return fmt.Errorf("layer %q weight: %w", name, err)
		}
		if err := l.Bias.validate(); err != nil {
			return fmt.Errorf("layer %q bias: %w", name, err)
		}
		if len(l.Bias.Shape) != 1 {
			return fmt.Errorf("layer %q bias must be 1-D, got shape %v", name, l.Bias.Shape)
		}
	}

	return nil
}

// Schema returns the layer names and tensor shapes of the set.
func (ps ParameterSet) Schema() Schema {
	s := make(Schema, len(ps))
	for name, l := range ps {
		s[name] = LayerShape{
			Weight: slices.Clone(l.Weight.Shape),
			Bias:   slices.Clone(l.Bias.Shape),
		}
	}

	return s
}

// Equal reports whether a and b have the same schema and bit-identical values.
func Equal(a, b ParameterSet) bool {
	if a.Schema().Check(b) != nil {
		return false
	}
	for name, la := range a {
		lb := b[name]
		if !slices.Equal(la.Weight.Data, lb.Weight.Data) || !slices.Equal(la.Bias.Data, lb.Bias.Data) {
			return false
		}
	}

	return true
}

// LayerShape is the shape of a layer's weight and bias.
type LayerShape struct {
	Weight []int
	Bias   []int
}

// Schema maps layer names to shapes. Sets taking part in one aggregation
// must share a schema.
type Schema map[string]LayerShape

// Check returns ErrShapeMismatch when ps does not have exactly the layers and
// shapes described by s.
func (s Schema) Check(ps ParameterSet) error {
	if len(s) != len(ps) {
		return fmt.Errorf("%w: expected %d layers, got %d", ErrShapeMismatch, len(s), len(ps))
	}
	for name, shape := range s {
		l, ok := ps[name]
		if !ok {
			return fmt.Errorf("%w: missing layer %q", ErrShapeMismatch, name)
		}
		if !slices.Equal(shape.Weight, l.Weight.Shape) {
			return fmt.Errorf("%w: layer %q weight shape %v, expected %v", ErrShapeMismatch, name, l.Weight.Shape, shape.Weight)
		}
		if !slices.Equal(shape.Bias, l.Bias.Shape) {
			return fmt.Errorf("%w: layer %q bias shape %v, expected %v", ErrShapeMismatch, name, l.Bias.Shape, shape.Bias)
		}
	}

	return nil
}

func numElements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := uint64(1)
	for _, d := range shape {
		if d <= 0 {
			return -1
		}
		hi, lo := bits.Mul64(n, uint64(d))
		if hi != 0 || lo > MaxTensorElements {
			return -1
		}
		n = lo
	}

	return int(n)
}
