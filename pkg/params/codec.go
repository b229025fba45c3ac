package params

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	// FormatV1 identifies the parameter set encoding. The only one for now.
	FormatV1 = "fedavg.params.v1"

	dtypeFloat64 = "float64"

	// Largest array and map sizes the cbor decoder accepts.
	maxCBORElements = 2147483647
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: maxCBORElements,
		MaxMapPairs:      maxCBORElements,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Snapshot is a parameter set optionally tagged with the global round it
// belongs to.
type Snapshot struct {
	Round  *uint64
	Params ParameterSet
}

// RoundOf returns a pointer to round, for building tagged snapshots.
func RoundOf(round uint64) *uint64 {
	return &round
}

type tensorDoc struct {
	Shape []int     `cbor:"shape"`
	Data  []float64 `cbor:"data"`
}

type layerDoc struct {
	Weight *tensorDoc `cbor:"weight"`
	Bias   *tensorDoc `cbor:"bias"`
}

type document struct {
	Format string              `cbor:"format"`
	DType  string              `cbor:"dtype"`
	Round  *uint64             `cbor:"round,omitempty"`
	Layers map[string]layerDoc `cbor:"layers"`
}

// Marshal encodes s. The parameter set must be valid.
func Marshal(s Snapshot) ([]byte, error) {
	if err := s.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameter set: %w", err)
	}

	doc := document{
		Format: FormatV1,
		DType:  dtypeFloat64,
		Round:  s.Round,
		Layers: make(map[string]layerDoc, len(s.Params)),
	}
	for name, l := range s.Params {
		doc.Layers[name] = layerDoc{
			Weight: &tensorDoc{Shape: l.Weight.Shape, Data: l.Weight.Data},
			Bias:   &tensorDoc{Shape: l.Bias.Shape, Data: l.Bias.Data},
		}
	}

	return encMode.Marshal(doc)
}

// Unmarshal decodes data produced by Marshal. Any failure wraps ErrDecode.
func Unmarshal(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	var doc document
	if err := decMode.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, errors.Join(ErrDecode, err)
	}

	switch {
	case doc.Format != FormatV1:
		return Snapshot{}, fmt.Errorf("%w: unknown format %q", ErrDecode, doc.Format)
	case doc.DType != dtypeFloat64:
		return Snapshot{}, fmt.Errorf("%w: unsupported dtype %q", ErrDecode, doc.DType)
	}

	ps := make(ParameterSet, len(doc.Layers))
	for name, l := range doc.Layers {
		if l.Weight == nil || l.Bias == nil {
			return Snapshot{}, fmt.Errorf("%w: layer %q must carry weight and bias", ErrDecode, name)
		}
		ps[name] = Layer{
			Weight: Tensor{Shape: l.Weight.Shape, Data: l.Weight.Data},
			Bias:   Tensor{Shape: l.Bias.Shape, Data: l.Bias.Data},
		}
	}
	if err := ps.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return Snapshot{Round: doc.Round, Params: ps}, nil
}
