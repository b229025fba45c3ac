package middleware

import (
	"context"
	"time"

	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/pkg/fl"
	"github.com/go-kit/kit/metrics"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Start(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "start").Add(1)
		mm.latency.With("method", "start").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Start(ctx)
}

func (mm *metricsMiddleware) Broadcast(ctx context.Context) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "broadcast").Add(1)
		mm.latency.With("method", "broadcast").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Broadcast(ctx)
}

func (mm *metricsMiddleware) SubmitUpdate(ctx context.Context, clientID int, payload []byte) (coordinator.Submission, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-update").Add(1)
		mm.latency.With("method", "submit-update").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitUpdate(ctx, clientID, payload)
}

func (mm *metricsMiddleware) Status(ctx context.Context) (coordinator.Status, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "status").Add(1)
		mm.latency.With("method", "status").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Status(ctx)
}

func (mm *metricsMiddleware) GlobalModel(ctx context.Context) (fl.GlobalModel, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "global-model").Add(1)
		mm.latency.With("method", "global-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GlobalModel(ctx)
}

func (mm *metricsMiddleware) ListRounds(ctx context.Context, offset, limit uint64) (coordinator.RoundPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-rounds").Add(1)
		mm.latency.With("method", "list-rounds").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListRounds(ctx, offset, limit)
}

func (mm *metricsMiddleware) GetRound(ctx context.Context, round uint64) (fl.GlobalModel, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-round").Add(1)
		mm.latency.With("method", "get-round").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetRound(ctx, round)
}

func (mm *metricsMiddleware) Done() <-chan struct{} {
	return mm.svc.Done()
}

func (mm *metricsMiddleware) Err() error {
	return mm.svc.Err()
}
