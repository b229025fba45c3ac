package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pkgerrors "github.com/absmach/fedavg/pkg/errors"
	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/params"
	"github.com/absmach/fedavg/pkg/storage"
	"github.com/cenkalti/backoff/v5"
)

const (
	defPersistRetries = 5
	defRetryInterval  = 200 * time.Millisecond
	publishRetries    = 3
	roundKeyFormat    = "rounds/%020d"
)

type service struct {
	mu sync.Mutex

	cfg        Config
	store      fl.StateStore
	history    storage.Storage
	aggregator fl.Aggregator
	publisher  Publisher
	logger     *slog.Logger

	global  fl.GlobalModel
	schema  params.Schema
	tracker *fl.RoundTracker

	failed chan struct{}
	err    error
}

func NewService(cfg Config, store fl.StateStore, history storage.Storage, aggregator fl.Aggregator, publisher Publisher, logger *slog.Logger) (Service, error) {
	if cfg.Clients <= 0 {
		return nil, fmt.Errorf("expected client count must be positive, got %d", cfg.Clients)
	}
	if len(cfg.Architecture) == 0 {
		cfg.Architecture = params.DefaultArchitecture()
	}
	if err := cfg.Architecture.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model architecture: %w", err)
	}
	if cfg.PersistRetries == 0 {
		cfg.PersistRetries = defPersistRetries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defRetryInterval
	}

	return &service{
		cfg:        cfg,
		store:      store,
		history:    history,
		aggregator: aggregator,
		publisher:  publisher,
		logger:     logger,
		failed:     make(chan struct{}),
	}, nil
}

func (svc *service) Start(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	global, err := svc.store.Load(ctx)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		ps, err := svc.cfg.Architecture.Init(svc.cfg.Seed)
		if err != nil {
			return err
		}
		global = fl.GlobalModel{Round: 0, Params: ps, UpdatedAt: time.Now().UTC()}
		if err := svc.persist(ctx, global); err != nil {
			return err
		}
		svc.logger.InfoContext(ctx, "Created default global model",
			slog.Int("layers", len(ps)),
			slog.Int("num_params", ps.NumParams()))
	case err != nil:
		return fmt.Errorf("failed to load global model: %w", err)
	default:
		if svc.cfg.Architecture.Schema().Check(global.Params) != nil {
			svc.logger.WarnContext(ctx, "Persisted global model does not match the configured architecture, keeping the persisted layout")
		}
		svc.logger.InfoContext(ctx, "Loaded persisted global model", slog.Uint64("round", global.Round))
	}

	tracker, err := fl.NewRoundTracker(svc.cfg.Clients, global.Round)
	if err != nil {
		return err
	}

	svc.global = global
	svc.schema = global.Params.Schema()
	svc.tracker = tracker
	svc.archive(ctx, global)

	return nil
}

func (svc *service) Broadcast(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.tracker == nil {
		return ErrNotStarted
	}
	if svc.err != nil {
		return svc.err
	}

	return svc.publish(ctx, svc.global)
}

func (svc *service) SubmitUpdate(ctx context.Context, clientID int, payload []byte) (Submission, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.tracker == nil {
		return Submission{}, ErrNotStarted
	}
	if svc.err != nil {
		return Submission{}, svc.err
	}
	if clientID < 0 || clientID >= svc.cfg.Clients {
		return Submission{}, fmt.Errorf("%w: %d not in [0, %d)", fl.ErrInvalidClient, clientID, svc.cfg.Clients)
	}

	snap, err := params.Unmarshal(payload)
	if err != nil {
		return Submission{}, err
	}

	current := svc.tracker.Round()
	if snap.Round != nil {
		switch {
		case *snap.Round < current:
			return Submission{}, fmt.Errorf("%w: update for round %d, collecting round %d", fl.ErrLateSubmission, *snap.Round, current)
		case *snap.Round > current:
			return Submission{}, fmt.Errorf("%w: update for round %d, collecting round %d", ErrInvalidRound, *snap.Round, current)
		}
	}

	if err := svc.schema.Check(snap.Params); err != nil {
		return Submission{}, err
	}

	overwritten, err := svc.tracker.Record(clientID, snap.Params)
	if err != nil {
		return Submission{}, err
	}
	sub := Submission{ClientID: clientID, Round: current, Overwritten: overwritten}
	if overwritten {
		svc.logger.WarnContext(ctx, "Client resubmitted, replacing its previous update",
			slog.Int("client_id", clientID),
			slog.Uint64("round", current))
	}

	if svc.tracker.Phase() != fl.Ready {
		return sub, nil
	}

	global, err := svc.completeRound(ctx)
	if err == nil || errors.Is(err, ErrPublish) {
		sub.Completed = true
		sub.Round = global.Round
	}

	return sub, err
}

// completeRound aggregates the drained updates, persists the result and
// publishes it. The new model replaces the global one before it is
// persisted, so a persistence failure leaves the service failed at the new
// round. The caller holds svc.mu.
func (svc *service) completeRound(ctx context.Context) (fl.GlobalModel, error) {
	round := svc.tracker.Round()
	updates, err := svc.tracker.Drain()
	if err != nil {
		return fl.GlobalModel{}, err
	}

	start := time.Now()
	aggregated, err := svc.aggregator.Aggregate(updates)
	if err != nil {
		return fl.GlobalModel{}, fmt.Errorf("failed to aggregate round %d: %w", round, err)
	}
	svc.logger.InfoContext(ctx, "Aggregated round",
		slog.Uint64("round", round),
		slog.Int("updates", len(updates)),
		slog.String("duration", time.Since(start).String()))

	svc.global = fl.GlobalModel{
		Round:     svc.tracker.Round(),
		Params:    aggregated,
		UpdatedAt: time.Now().UTC(),
	}

	if err := svc.persist(ctx, svc.global); err != nil {
		return fl.GlobalModel{}, err
	}
	svc.archive(ctx, svc.global)

	if err := svc.publish(ctx, svc.global); err != nil {
		return svc.global, err
	}

	return svc.global, nil
}

func (svc *service) persist(ctx context.Context, model fl.GlobalModel) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = svc.cfg.RetryInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, svc.store.Save(ctx, model)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(svc.cfg.PersistRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			svc.logger.WarnContext(ctx, "Failed to persist global model, retrying",
				slog.Uint64("round", model.Round),
				slog.Any("error", err),
				slog.String("retry_in", next.String()))
		}),
	)
	if err != nil {
		if !errors.Is(err, fl.ErrPersistence) {
			err = errors.Join(fl.ErrPersistence, err)
		}
		svc.fail(fmt.Errorf("round %d: %w", model.Round, err))

		return svc.err
	}

	return nil
}

// fail records the first fatal error and closes failed. The caller holds svc.mu.
func (svc *service) fail(err error) {
	if svc.err != nil {
		return
	}
	svc.err = err
	close(svc.failed)
	svc.logger.Error("Coordinator failed, refusing further updates", slog.Any("error", err))
}

func (svc *service) Done() <-chan struct{} {
	return svc.failed
}

func (svc *service) Err() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.err
}

func (svc *service) publish(ctx context.Context, model fl.GlobalModel) error {
	payload, err := params.Marshal(params.Snapshot{Round: params.RoundOf(model.Round), Params: model.Params})
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = svc.cfg.RetryInterval

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, svc.publisher.Publish(ctx, payload)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(publishRetries),
	)
	if err != nil {
		return fmt.Errorf("%w of round %d: %w", ErrPublish, model.Round, err)
	}

	svc.logger.InfoContext(ctx, "Published global model",
		slog.Uint64("round", model.Round),
		slog.Int("bytes", len(payload)))

	return nil
}

// archive keeps a copy of every global model. Failures only cost history.
func (svc *service) archive(ctx context.Context, model fl.GlobalModel) {
	if svc.history == nil {
		return
	}

	data, err := params.Marshal(params.Snapshot{Round: params.RoundOf(model.Round), Params: model.Params})
	if err == nil {
		err = svc.history.Create(ctx, roundKey(model.Round), data)
	}
	if err != nil && !errors.Is(err, pkgerrors.ErrEntityExists) {
		svc.logger.WarnContext(ctx, "Failed to archive global model",
			slog.Uint64("round", model.Round),
			slog.Any("error", err))

		return
	}

	keep := svc.cfg.HistoryKeep
	if keep == 0 || model.Round < keep {
		return
	}
	expired := model.Round - keep
	if err := svc.history.Delete(ctx, roundKey(expired)); err != nil {
		svc.logger.WarnContext(ctx, "Failed to prune archived round",
			slog.Uint64("round", expired),
			slog.Any("error", err))
	}
}

func (svc *service) Status(_ context.Context) (Status, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.tracker == nil {
		return Status{}, ErrNotStarted
	}

	return Status{
		Round:     svc.tracker.Round(),
		Phase:     svc.tracker.Phase().String(),
		Expected:  svc.tracker.Expected(),
		Submitted: svc.tracker.Submitted(),
		NumParams: svc.global.Params.NumParams(),
		UpdatedAt: svc.global.UpdatedAt,
	}, nil
}

// GlobalModel returns the current model. Its parameters are replaced, never
// modified, so callers may read them without holding a lock.
func (svc *service) GlobalModel(_ context.Context) (fl.GlobalModel, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.tracker == nil {
		return fl.GlobalModel{}, ErrNotStarted
	}

	return svc.global, nil
}

func (svc *service) ListRounds(ctx context.Context, offset, limit uint64) (RoundPage, error) {
	page := RoundPage{Offset: offset, Limit: limit, Rounds: []RoundInfo{}}
	if svc.history == nil {
		return page, nil
	}

	entries, total, err := svc.history.List(ctx, offset, limit)
	if err != nil {
		return RoundPage{}, err
	}
	page.Total = total

	for _, e := range entries {
		snap, err := params.Unmarshal(e.Value)
		if err != nil {
			return RoundPage{}, fmt.Errorf("archived entry %s: %w", e.Key, err)
		}
		info := RoundInfo{NumParams: snap.Params.NumParams(), Layers: len(snap.Params)}
		if snap.Round != nil {
			info.Round = *snap.Round
		}
		page.Rounds = append(page.Rounds, info)
	}

	return page, nil
}

func (svc *service) GetRound(ctx context.Context, round uint64) (fl.GlobalModel, error) {
	if svc.history == nil {
		return fl.GlobalModel{}, pkgerrors.ErrNotFound
	}

	data, err := svc.history.Get(ctx, roundKey(round))
	if err != nil {
		return fl.GlobalModel{}, err
	}

	snap, err := params.Unmarshal(data)
	if err != nil {
		return fl.GlobalModel{}, err
	}

	return fl.GlobalModel{Round: round, Params: snap.Params}, nil
}

func roundKey(round uint64) string {
	return fmt.Sprintf(roundKeyFormat, round)
}
