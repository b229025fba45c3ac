package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/pkg/api"
	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/params"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	maxPayloadSize = 1024 * 1024 * 256
	octetStream    = "application/octet-stream"
)

func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, encodeError)),
	}

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Get("/model", otelhttp.NewHandler(kithttp.NewServer(
		modelEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "global-model").ServeHTTP)

	mux.Route("/rounds", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listRoundsEndpoint(svc),
			decodeListRoundsReq,
			api.EncodeResponse,
			opts...,
		), "list-rounds").ServeHTTP)
		r.Get("/{round}", otelhttp.NewHandler(kithttp.NewServer(
			getRoundEndpoint(svc),
			decodeRoundReq,
			api.EncodeResponse,
			opts...,
		), "get-round").ServeHTTP)
	})

	mux.Post("/clients/{clientID}/params", otelhttp.NewHandler(kithttp.NewServer(
		submitEndpoint(svc),
		decodeSubmitReq,
		api.EncodeResponse,
		opts...,
	), "submit-update").ServeHTTP)

	mux.Get("/health", supermq.Health("fedavg", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}

func decodeListRoundsReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listRoundsReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeRoundReq(_ context.Context, r *http.Request) (any, error) {
	round, err := strconv.ParseUint(chi.URLParam(r, "round"), 10, 64)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return roundReq{round: round}, nil
}

func decodeSubmitReq(_ context.Context, r *http.Request) (any, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.Contains(ct, api.CBORContentType) && !strings.Contains(ct, octetStream) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	raw := chi.URLParam(r, "clientID")
	clientID, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a client id", fl.ErrInvalidClient, raw)
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return submitReq{
		clientID: clientID,
		payload:  payload,
	}, nil
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, params.ErrDecode),
		errors.Is(err, fl.ErrInvalidClient),
		errors.Is(err, coordinator.ErrInvalidRound):
		api.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, fl.ErrLateSubmission):
		api.WriteError(w, http.StatusConflict, err)
	case errors.Is(err, params.ErrShapeMismatch):
		api.WriteError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, coordinator.ErrNotStarted),
		errors.Is(err, fl.ErrPersistence):
		api.WriteError(w, http.StatusServiceUnavailable, err)
	default:
		api.EncodeError(ctx, err, w)
	}
}
