package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/absmach/fedavg/pkg/errors"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType     = "application/json"
	CBORContentType = "application/cbor"

	MaxLimitSize = 100
)

// RawResponse is written to the client as is, without JSON encoding.
type RawResponse interface {
	Payload() []byte
}

type errorRes struct {
	Error string `json:"error"`
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if ar, ok := response.(supermq.Response); ok {
		w.Header().Set("Content-Type", ContentType)
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	if rr, ok := response.(RawResponse); ok {
		_, err := w.Write(rr.Payload())

		return err
	}

	return json.NewEncoder(w).Encode(response)
}

// EncodeError writes err with the status code of the first class it
// belongs to.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	WriteError(w, StatusCode(err), err)
}

func WriteError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(errorRes{Error: err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, apiutil.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, apiutil.ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrEntityExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
