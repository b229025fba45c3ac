package fl_test

import (
	"testing"

	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundTracker(t *testing.T) {
	_, err := fl.NewRoundTracker(0, 0)
	assert.Error(t, err)

	rt, err := fl.NewRoundTracker(3, 5)
	require.NoError(t, err)
	assert.Equal(t, fl.Collecting, rt.Phase())
	assert.Equal(t, uint64(5), rt.Round())
	assert.Equal(t, 3, rt.Expected())
	assert.Empty(t, rt.Submitted())
}

func TestRoundTrackerCompletesExactly(t *testing.T) {
	rt, err := fl.NewRoundTracker(3, 0)
	require.NoError(t, err)

	steps := []struct {
		client      int
		weight      float64
		overwritten bool
		phase       fl.Phase
		submitted   []int
	}{
		{client: 2, weight: 6, phase: fl.Collecting, submitted: []int{2}},
		{client: 0, weight: 0, phase: fl.Collecting, submitted: []int{0, 2}},
		{client: 0, weight: 1, overwritten: true, phase: fl.Collecting, submitted: []int{0, 2}},
		{client: 2, weight: 7, overwritten: true, phase: fl.Collecting, submitted: []int{0, 2}},
		{client: 1, weight: 3, phase: fl.Ready, submitted: []int{0, 1, 2}},
	}

	for i, s := range steps {
		overwritten, err := rt.Record(s.client, vectorSet([]float64{s.weight}))
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, s.overwritten, overwritten, "step %d", i)
		assert.Equal(t, s.phase, rt.Phase(), "step %d", i)
		assert.Equal(t, s.submitted, rt.Submitted(), "step %d", i)
	}

	updates, err := rt.Drain()
	require.NoError(t, err)
	require.Len(t, updates, 3)
	weights := []float64{}
	for _, u := range updates {
		weights = append(weights, u["fc"].Weight.Data[0])
	}
	assert.Equal(t, []float64{1, 3, 7}, weights, "drain orders by client id and keeps the latest submission")
}

func TestRoundTrackerRejectsWhileReady(t *testing.T) {
	rt, err := fl.NewRoundTracker(1, 0)
	require.NoError(t, err)

	_, err = rt.Record(0, vectorSet([]float64{1}))
	require.NoError(t, err)
	require.Equal(t, fl.Ready, rt.Phase())

	_, err = rt.Record(0, vectorSet([]float64{2}))
	assert.ErrorIs(t, err, fl.ErrLateSubmission)

	updates, err := rt.Drain()
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, []float64{1}, updates[0]["fc"].Weight.Data, "a rejected submission must not replace the recorded one")
}

func TestRoundTrackerDrainResets(t *testing.T) {
	rt, err := fl.NewRoundTracker(2, 9)
	require.NoError(t, err)

	_, err = rt.Drain()
	assert.ErrorIs(t, err, fl.ErrRoundNotReady)

	for id := range 2 {
		_, err := rt.Record(id, vectorSet([]float64{float64(id)}))
		require.NoError(t, err)
	}
	_, err = rt.Drain()
	require.NoError(t, err)

	assert.Equal(t, uint64(10), rt.Round())
	assert.Equal(t, fl.Collecting, rt.Phase())
	assert.Empty(t, rt.Submitted())

	_, err = rt.Drain()
	assert.ErrorIs(t, err, fl.ErrRoundNotReady)

	overwritten, err := rt.Record(1, vectorSet([]float64{1}))
	require.NoError(t, err)
	assert.False(t, overwritten, "a submission in the new round is not a duplicate")
	assert.Equal(t, []int{1}, rt.Submitted())
	assert.Equal(t, fl.Collecting, rt.Phase())
}

func TestRoundTrackerInvalidClient(t *testing.T) {
	rt, err := fl.NewRoundTracker(2, 0)
	require.NoError(t, err)

	for _, id := range []int{-1, 2, 100} {
		_, err := rt.Record(id, params.ParameterSet{})
		assert.ErrorIs(t, err, fl.ErrInvalidClient, "client %d", id)
	}
	assert.Empty(t, rt.Submitted())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "collecting", fl.Collecting.String())
	assert.Equal(t, "ready", fl.Ready.String())
	assert.Equal(t, "phase(7)", fl.Phase(7).String())
}
