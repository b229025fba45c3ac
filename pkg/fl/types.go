package fl

import (
	"context"
	"time"

	"github.com/absmach/fedavg/pkg/params"
)

// GlobalModel is the coordinator's authoritative parameter set together with
// the number of rounds that produced it.
type GlobalModel struct {
	Round     uint64
	Params    params.ParameterSet
	UpdatedAt time.Time
}

// Aggregator combines the updates of one round into a new global parameter set.
type Aggregator interface {
	Aggregate(updates []params.ParameterSet) (params.ParameterSet, error)
}

// StateStore persists the latest global model.
type StateStore interface {
	// Load returns errors.ErrNotFound when nothing was persisted yet.
	Load(ctx context.Context) (GlobalModel, error)
	Save(ctx context.Context, model GlobalModel) error
}
