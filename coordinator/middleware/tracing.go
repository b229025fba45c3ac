package middleware

import (
	"context"

	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/pkg/fl"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Start(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "start")
	defer span.End()

	return tm.svc.Start(ctx)
}

func (tm *tracing) Broadcast(ctx context.Context) error {
	ctx, span := tm.tracer.Start(ctx, "broadcast")
	defer span.End()

	return tm.svc.Broadcast(ctx)
}

func (tm *tracing) SubmitUpdate(ctx context.Context, clientID int, payload []byte) (resp coordinator.Submission, err error) {
	ctx, span := tm.tracer.Start(ctx, "submit-update", trace.WithAttributes(
		attribute.Int("client_id", clientID),
		attribute.Int("bytes", len(payload)),
	))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int64("round", int64(resp.Round)),
			attribute.Bool("completed", resp.Completed),
		)
		span.End()
	}()

	return tm.svc.SubmitUpdate(ctx, clientID, payload)
}

func (tm *tracing) Status(ctx context.Context) (coordinator.Status, error) {
	ctx, span := tm.tracer.Start(ctx, "status")
	defer span.End()

	return tm.svc.Status(ctx)
}

func (tm *tracing) GlobalModel(ctx context.Context) (fl.GlobalModel, error) {
	ctx, span := tm.tracer.Start(ctx, "global-model")
	defer span.End()

	return tm.svc.GlobalModel(ctx)
}

func (tm *tracing) ListRounds(ctx context.Context, offset, limit uint64) (coordinator.RoundPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-rounds", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListRounds(ctx, offset, limit)
}

func (tm *tracing) GetRound(ctx context.Context, round uint64) (fl.GlobalModel, error) {
	ctx, span := tm.tracer.Start(ctx, "get-round", trace.WithAttributes(
		attribute.Int64("round", int64(round)),
	))
	defer span.End()

	return tm.svc.GetRound(ctx, round)
}

func (tm *tracing) Done() <-chan struct{} {
	return tm.svc.Done()
}

func (tm *tracing) Err() error {
	return tm.svc.Err()
}
