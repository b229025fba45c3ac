package fl

import (
	"fmt"
	"maps"
	"slices"

	"github.com/absmach/fedavg/pkg/params"
)

// Phase is the state of the round in progress.
type Phase uint8

const (
	// Collecting accepts submissions until every expected client has one.
	Collecting Phase = iota
	// Ready holds a full set of submissions waiting to be drained.
	Ready
)

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// RoundTracker records which clients submitted an update for the round in
// progress and reports when the round is complete.
//
// It is not safe for concurrent use; callers serialize Record and Drain.
type RoundTracker struct {
	expected    int
	round       uint64
	phase       Phase
	submissions map[int]params.ParameterSet
}

// NewRoundTracker returns a tracker collecting round for expected clients
// with ids in [0, expected).
func NewRoundTracker(expected int, round uint64) (*RoundTracker, error) {
	if expected <= 0 {
		return nil, fmt.Errorf("expected client count must be positive, got %d", expected)
	}

	return &RoundTracker{
		expected:    expected,
		round:       round,
		phase:       Collecting,
		submissions: make(map[int]params.ParameterSet, expected),
	}, nil
}

// Record stores ps as the update of clientID for the current round. A second
// submission from the same client replaces the first and does not count
// twice; overwritten reports whether that happened. Once every client has
// submitted the tracker moves to Ready and further submissions fail with
// ErrLateSubmission until Drain.
func (rt *RoundTracker) Record(clientID int, ps params.ParameterSet) (overwritten bool, err error) {
	if clientID < 0 || clientID >= rt.expected {
		return false, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidClient, clientID, rt.expected)
	}
	if rt.phase == Ready {
		return false, fmt.Errorf("%w: round %d is complete", ErrLateSubmission, rt.round)
	}

	_, overwritten = rt.submissions[clientID]
	rt.submissions[clientID] = ps
	if len(rt.submissions) == rt.expected {
		rt.phase = Ready
	}

	return overwritten, nil
}

// Drain returns the submissions ordered by ascending client id, clears them
// and starts the next round.
func (rt *RoundTracker) Drain() ([]params.ParameterSet, error) {
	if rt.phase != Ready {
		return nil, fmt.Errorf("%w: %d of %d updates in round %d", ErrRoundNotReady, len(rt.submissions), rt.expected, rt.round)
	}

	ids := slices.Sorted(maps.Keys(rt.submissions))
	updates := make([]params.ParameterSet, 0, len(ids))
	for _, id := range ids {
		updates = append(updates, rt.submissions[id])
	}

	clear(rt.submissions)
	rt.round++
	rt.phase = Collecting

	return updates, nil
}

// Phase returns the current phase.
func (rt *RoundTracker) Phase() Phase {
	return rt.phase
}

// Round returns the sequence number of the round in progress.
func (rt *RoundTracker) Round() uint64 {
	return rt.round
}

// Expected returns the number of clients a round waits for.
func (rt *RoundTracker) Expected() int {
	return rt.expected
}

// Submitted returns the ids that have submitted in the current round, ascending.
func (rt *RoundTracker) Submitted() []int {
	return slices.Sorted(maps.Keys(rt.submissions))
}
