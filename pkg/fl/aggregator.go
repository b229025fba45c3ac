package fl

import (
	"fmt"

	"github.com/absmach/fedavg/pkg/params"
)

var _ Aggregator = (*FedAvgAggregator)(nil)

// FedAvgAggregator computes the unweighted element-wise mean of the updates.
type FedAvgAggregator struct{}

func NewFedAvgAggregator() Aggregator {
	return &FedAvgAggregator{}
}

// Aggregate sums updates[i]/N into a zero accumulator in slice order, so the
// result is deterministic for a given ordering. Inputs are never modified.
func (f *FedAvgAggregator) Aggregate(updates []params.ParameterSet) (params.ParameterSet, error) {
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}

	scale := 1 / float64(len(updates))
	acc := params.ZerosLike(updates[0])
	for i, u := range updates {
		var err error
		acc, err = params.AddScaled(acc, u, scale)
		if err != nil {
			return nil, fmt.Errorf("update %d: %w", i, err)
		}
	}

	return acc, nil
}
