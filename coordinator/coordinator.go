// Package coordinator owns the global model of a federated training run. It
// collects one update per client each round, averages them and publishes the
// result so that every client continues from the same baseline.
package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/params"
)

var (
	// ErrInvalidRound is returned for updates tagged with a round that has not started.
	ErrInvalidRound = errors.New("update is tagged with a future round")
	// ErrNotStarted is returned when updates arrive before Start.
	ErrNotStarted = errors.New("coordinator not started")
	// ErrPublish is returned when a persisted global model could not be published.
	ErrPublish = errors.New("failed to publish global model")
)

type Service interface {
	// Start loads the persisted global model, or creates and persists the
	// default one, and resumes collection at its round.
	Start(ctx context.Context) error

	// Broadcast publishes the current global model.
	Broadcast(ctx context.Context) error

	// SubmitUpdate records the encoded update of a client. When it completes
	// the round the new global model is persisted and published before it
	// returns.
	SubmitUpdate(ctx context.Context, clientID int, payload []byte) (Submission, error)

	Status(ctx context.Context) (Status, error)
	GlobalModel(ctx context.Context) (fl.GlobalModel, error)

	ListRounds(ctx context.Context, offset, limit uint64) (RoundPage, error)
	GetRound(ctx context.Context, round uint64) (fl.GlobalModel, error)

	// Done is closed once the global model could not be persisted. From then
	// on Broadcast and SubmitUpdate return Err.
	Done() <-chan struct{}
	Err() error
}

// Submission describes the outcome of an accepted update.
type Submission struct {
	ClientID    int    `json:"client_id"`
	Round       uint64 `json:"round"`
	Overwritten bool   `json:"overwritten"`
	// Completed is set when this update completed its round; Round is then
	// the round of the newly published global model.
	Completed bool `json:"completed"`
}

type Status struct {
	Round     uint64    `json:"round"`
	Phase     string    `json:"phase"`
	Expected  int       `json:"expected_clients"`
	Submitted []int     `json:"submitted_clients"`
	NumParams int       `json:"num_params"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoundInfo struct {
	Round     uint64 `json:"round"`
	NumParams int    `json:"num_params"`
	Layers    int    `json:"layers"`
}

type RoundPage struct {
	Offset uint64      `json:"offset"`
	Limit  uint64      `json:"limit"`
	Total  uint64      `json:"total"`
	Rounds []RoundInfo `json:"rounds"`
}

// Publisher sends an encoded global model to every client.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Handler receives the raw update of a client.
type Handler func(ctx context.Context, clientID int, payload []byte) error

// Transport delivers client updates and broadcasts the global model.
type Transport interface {
	Publisher
	Subscribe(ctx context.Context, handler Handler) error
	Close(ctx context.Context) error
}

// Config holds the coordination settings.
type Config struct {
	Clients      int
	Architecture params.Architecture
	Seed         uint64
	// PersistRetries bounds the attempts to write the global model after a round.
	PersistRetries uint
	// RetryInterval is the first backoff interval for persistence and publish retries.
	RetryInterval time.Duration
	// HistoryKeep is the number of archived rounds kept; 0 keeps all.
	HistoryKeep uint64
}
