package fl

import "errors"

var (
	// ErrNoUpdates is returned when aggregation is asked to average nothing.
	ErrNoUpdates = errors.New("no updates provided for aggregation")
	// ErrLateSubmission is returned for updates that belong to a round already being aggregated.
	ErrLateSubmission = errors.New("update arrived after its round was aggregated")
	// ErrRoundNotReady is returned when draining a round that is still collecting.
	ErrRoundNotReady = errors.New("round is not ready for aggregation")
	// ErrInvalidClient is returned for client ids outside the configured range.
	ErrInvalidClient = errors.New("invalid client id")
	// ErrPersistence is returned when the global model cannot be written to durable storage.
	ErrPersistence = errors.New("failed to persist global model")
)
