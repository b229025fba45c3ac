package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/absmach/fedavg/pkg/fl"
)

// Serve starts svc, wires transport deliveries to it and publishes the
// baseline model. It returns when ctx is done, when maxRounds rounds have
// completed (0 means no limit) or when svc fails, whichever path the failing
// update came through. Any other per-message failure is logged and the update
// dropped.
func Serve(ctx context.Context, svc Service, transport Transport, maxRounds uint64, logger *slog.Logger) error {
	if err := svc.Start(ctx); err != nil {
		return err
	}

	status, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	startRound := status.Round

	done := make(chan struct{})
	var once sync.Once

	handler := func(ctx context.Context, clientID int, payload []byte) error {
		sub, err := svc.SubmitUpdate(ctx, clientID, payload)
		switch {
		case errors.Is(err, fl.ErrPersistence):
			return err
		case errors.Is(err, ErrPublish):
			logger.WarnContext(ctx, "Round completed but its global model was not published",
				slog.Uint64("round", sub.Round),
				slog.Any("error", err))
		case err != nil:
			logger.DebugContext(ctx, "Dropped client update",
				slog.Int("client_id", clientID),
				slog.String("reason", dropReason(err)))

			return nil
		}

		if sub.Completed && maxRounds > 0 && sub.Round-startRound >= maxRounds {
			once.Do(func() { close(done) })
		}

		return nil
	}

	if err := transport.Subscribe(ctx, handler); err != nil {
		return err
	}
	if err := svc.Broadcast(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-svc.Done():
		return svc.Err()
	case <-done:
		logger.InfoContext(ctx, "Completed configured number of rounds", slog.Uint64("rounds", maxRounds))

		return nil
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, fl.ErrInvalidClient):
		return "invalid client"
	case errors.Is(err, fl.ErrLateSubmission):
		return "late submission"
	case errors.Is(err, ErrInvalidRound):
		return "future round"
	case errors.Is(err, ErrNotStarted):
		return "not started"
	default:
		return err.Error()
	}
}
