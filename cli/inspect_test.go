package cli_test

import (
	"testing"

	"github.com/absmach/fedavg/cli"
	"github.com/absmach/fedavg/pkg/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	ps := params.ParameterSet{
		"fc": {
			Weight: params.Tensor{Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}},
			Bias:   params.Tensor{Shape: []int{1}, Data: []float64{-2}},
		},
	}
	data, err := params.Marshal(params.Snapshot{Round: params.RoundOf(5), Params: ps})
	require.NoError(t, err)

	stats, err := cli.Inspect(data)
	require.NoError(t, err)
	require.NotNil(t, stats.Round)
	assert.Equal(t, uint64(5), *stats.Round)
	assert.Equal(t, 5, stats.NumParams)
	require.Len(t, stats.Layers, 1)

	w := stats.Layers[0].Weight
	assert.Equal(t, []int{2, 2}, w.Shape)
	assert.Equal(t, 1.0, w.Min)
	assert.Equal(t, 4.0, w.Max)
	assert.InDelta(t, 2.5, w.Mean, 1e-12)
	assert.InDelta(t, 5.477225575, w.Norm, 1e-9)
	assert.Equal(t, -2.0, stats.Layers[0].Bias.Mean)

	_, err = cli.Inspect([]byte("garbage"))
	assert.ErrorIs(t, err, params.ErrDecode)
}
