package params

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// LayerSpec describes one trainable layer.
type LayerSpec struct {
	Name        string `toml:"name"`
	WeightShape []int  `toml:"weight_shape"`
	BiasShape   []int  `toml:"bias_shape"`
}

// Architecture is the ordered list of trainable layers of a model.
type Architecture []LayerSpec

// DefaultArchitecture is the convolutional classifier the clients train:
// two 7x7 convolutions over RGB input followed by a linear layer with ten
// outputs.
func DefaultArchitecture() Architecture {
	return Architecture{
		{Name: "conv1", WeightShape: []int{20, 3, 7, 7}, BiasShape: []int{20}},
		{Name: "conv2", WeightShape: []int{40, 20, 7, 7}, BiasShape: []int{40}},
		{Name: "linear", WeightShape: []int{10, 4000}, BiasShape: []int{10}},
	}
}

// Validate checks names are unique and shapes are usable.
func (a Architecture) Validate() error {
	if len(a) == 0 {
		return fmt.Errorf("architecture has no layers")
	}
	seen := make(map[string]bool, len(a))
	for _, l := range a {
		if l.Name == "" {
			return fmt.Errorf("layer with empty name")
		}
		if seen[l.Name] {
			return fmt.Errorf("duplicate layer %q", l.Name)
		}
		seen[l.Name] = true
		if numElements(l.WeightShape) <= 0 {
			return fmt.Errorf("layer %q has invalid weight shape %v", l.Name, l.WeightShape)
		}
		if len(l.BiasShape) != 1 || numElements(l.BiasShape) <= 0 {
			return fmt.Errorf("layer %q has invalid bias shape %v", l.Name, l.BiasShape)
		}
	}

	return nil
}

// Schema returns the schema every parameter set of this architecture has.
func (a Architecture) Schema() Schema {
	s := make(Schema, len(a))
	for _, l := range a {
		s[l.Name] = LayerShape{Weight: slices.Clone(l.WeightShape), Bias: slices.Clone(l.BiasShape)}
	}

	return s
}

// Init returns default weights for the architecture. Values are drawn from
// U(-1/sqrt(fan_in), 1/sqrt(fan_in)) where fan_in is the product of every
// weight dimension but the first. The same seed yields the same set.
func (a Architecture) Init(seed uint64) (ParameterSet, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ps := make(ParameterSet, len(a))
	for _, l := range a {
		fanIn := 1
		if len(l.WeightShape) > 1 {
			fanIn = numElements(l.WeightShape[1:])
		}
		bound := 1 / math.Sqrt(float64(fanIn))

		w := NewTensor(l.WeightShape...)
		for i := range w.Data {
			w.Data[i] = (rng.Float64()*2 - 1) * bound
		}
		b := NewTensor(l.BiasShape...)
		for i := range b.Data {
			b.Data[i] = (rng.Float64()*2 - 1) * bound
		}
		ps[l.Name] = Layer{Weight: w, Bias: b}
	}

	return ps, nil
}
