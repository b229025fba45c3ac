package api

import (
	"context"
	"errors"

	"github.com/absmach/fedavg/coordinator"
	pkgerrors "github.com/absmach/fedavg/pkg/errors"
	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/params"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func statusEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		status, err := svc.Status(ctx)
		if err != nil {
			return statusRes{}, err
		}

		return statusRes{Status: status}, nil
	}
}

func modelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		model, err := svc.GlobalModel(ctx)
		if err != nil {
			return modelRes{}, err
		}

		return encodeModel(model)
	}
}

func listRoundsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listRoundsReq)
		if !ok {
			return roundsPageRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrMalformedRequest)
		}
		if err := req.validate(); err != nil {
			return roundsPageRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.offset, req.limit)
		if err != nil {
			return roundsPageRes{}, err
		}

		return roundsPageRes{RoundPage: page}, nil
	}
}

func getRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return modelRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrMalformedRequest)
		}
		if err := req.validate(); err != nil {
			return modelRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		model, err := svc.GetRound(ctx, req.round)
		if err != nil {
			return modelRes{}, err
		}

		return encodeModel(model)
	}
}

func submitEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(submitReq)
		if !ok {
			return submitRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrMalformedRequest)
		}
		if err := req.validate(); err != nil {
			return submitRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		sub, err := svc.SubmitUpdate(ctx, req.clientID, req.payload)
		// The round was aggregated and persisted; clients catch up on the
		// next broadcast.
		if err != nil && !(sub.Completed && errors.Is(err, coordinator.ErrPublish)) {
			return submitRes{}, err
		}

		return submitRes{Submission: sub}, nil
	}
}

func encodeModel(model fl.GlobalModel) (modelRes, error) {
	data, err := params.Marshal(params.Snapshot{Round: params.RoundOf(model.Round), Params: model.Params})
	if err != nil {
		return modelRes{}, err
	}

	return modelRes{round: model.Round, data: data}, nil
}
