package api

import (
	"errors"

	"github.com/absmach/fedavg/pkg/api"
)

var (
	errLimitSize    = errors.New("limit exceeds maximum")
	errEmptyPayload = errors.New("empty update payload")
)

type listRoundsReq struct {
	offset, limit uint64
}

func (req *listRoundsReq) validate() error {
	if req.limit > api.MaxLimitSize {
		return errLimitSize
	}

	return nil
}

type roundReq struct {
	round uint64
}

func (req *roundReq) validate() error {
	return nil
}

type submitReq struct {
	clientID int
	payload  []byte
}

func (req *submitReq) validate() error {
	if len(req.payload) == 0 {
		return errEmptyPayload
	}

	return nil
}
