package params

import (
	"gonum.org/v1/gonum/floats"
)

// ZerosLike returns a set with the schema of ps and every value set to zero.
func ZerosLike(ps ParameterSet) ParameterSet {
	out := make(ParameterSet, len(ps))
	for name, l := range ps {
		out[name] = Layer{
			Weight: NewTensor(l.Weight.Shape...),
			Bias:   NewTensor(l.Bias.Shape...),
		}
	}

	return out
}

// AddScaled returns acc + other*scale, element-wise. Neither input is
// modified. It fails with ErrShapeMismatch if the schemas differ.
func AddScaled(acc, other ParameterSet, scale float64) (ParameterSet, error) {
	if err := acc.Schema().Check(other); err != nil {
		return nil, err
	}

	out := acc.Clone()
	for name, l := range out {
		o := other[name]
		floats.AddScaled(l.Weight.Data, scale, o.Weight.Data)
		floats.AddScaled(l.Bias.Data, scale, o.Bias.Data)
	}

	return out, nil
}

// EqualApprox reports whether a and b share a schema and every pair of values
// is within tol, absolutely or relatively.
func EqualApprox(a, b ParameterSet, tol float64) bool {
	if a.Schema().Check(b) != nil {
		return false
	}
	for name, la := range a {
		lb := b[name]
		if !floats.EqualApprox(la.Weight.Data, lb.Weight.Data, tol) {
			return false
		}
		if !floats.EqualApprox(la.Bias.Data, lb.Bias.Data, tol) {
			return false
		}
	}

	return true
}
