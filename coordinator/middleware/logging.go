package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/pkg/fl"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Start(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Error("Start coordinator failed", args...)

			return
		}
		lm.logger.Info("Start coordinator completed successfully", args...)
	}(time.Now())

	return lm.svc.Start(ctx)
}

func (lm *loggingMiddleware) Broadcast(ctx context.Context) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Broadcast global model failed", args...)

			return
		}
		lm.logger.Info("Broadcast global model completed successfully", args...)
	}(time.Now())

	return lm.svc.Broadcast(ctx)
}

// SubmitUpdate logs rejected updates at debug level; they are expected
// whenever clients fall behind or misbehave.
func (lm *loggingMiddleware) SubmitUpdate(ctx context.Context, clientID int, payload []byte) (resp coordinator.Submission, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("update",
				slog.Int("client_id", clientID),
				slog.Int("bytes", len(payload)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Debug("Submit update failed", args...)

			return
		}
		args = append(args,
			slog.Uint64("round", resp.Round),
			slog.Bool("completed", resp.Completed),
		)
		lm.logger.Debug("Submit update completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitUpdate(ctx, clientID, payload)
}

func (lm *loggingMiddleware) Status(ctx context.Context) (resp coordinator.Status, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get status failed", args...)

			return
		}
		lm.logger.Debug("Get status completed successfully", args...)
	}(time.Now())

	return lm.svc.Status(ctx)
}

func (lm *loggingMiddleware) GlobalModel(ctx context.Context) (resp fl.GlobalModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("round", resp.Round),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get global model failed", args...)

			return
		}
		lm.logger.Debug("Get global model completed successfully", args...)
	}(time.Now())

	return lm.svc.GlobalModel(ctx)
}

func (lm *loggingMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (resp coordinator.RoundPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List rounds failed", args...)

			return
		}
		lm.logger.Info("List rounds completed successfully", args...)
	}(time.Now())

	return lm.svc.ListRounds(ctx, offset, limit)
}

func (lm *loggingMiddleware) GetRound(ctx context.Context, round uint64) (resp fl.GlobalModel, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("round", round),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get round failed", args...)

			return
		}
		lm.logger.Info("Get round completed successfully", args...)
	}(time.Now())

	return lm.svc.GetRound(ctx, round)
}

func (lm *loggingMiddleware) Done() <-chan struct{} {
	return lm.svc.Done()
}

func (lm *loggingMiddleware) Err() error {
	return lm.svc.Err()
}
