package api

import (
	"net/http"
	"strconv"

	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/pkg/api"
	"github.com/absmach/supermq"
)

const roundHeader = "X-Fedavg-Round"

var (
	_ supermq.Response = (*statusRes)(nil)
	_ supermq.Response = (*modelRes)(nil)
	_ supermq.Response = (*roundsPageRes)(nil)
	_ supermq.Response = (*submitRes)(nil)
	_ api.RawResponse  = (*modelRes)(nil)
)

type statusRes struct {
	coordinator.Status
}

func (res statusRes) Code() int {
	return http.StatusOK
}

func (res statusRes) Headers() map[string]string {
	return map[string]string{}
}

func (res statusRes) Empty() bool {
	return false
}

// modelRes carries an encoded global model.
type modelRes struct {
	round uint64
	data  []byte
}

func (res modelRes) Code() int {
	return http.StatusOK
}

func (res modelRes) Headers() map[string]string {
	return map[string]string{
		"Content-Type": api.CBORContentType,
		roundHeader:    strconv.FormatUint(res.round, 10),
	}
}

func (res modelRes) Empty() bool {
	return len(res.data) == 0
}

func (res modelRes) Payload() []byte {
	return res.data
}

type roundsPageRes struct {
	coordinator.RoundPage
}

func (res roundsPageRes) Code() int {
	return http.StatusOK
}

func (res roundsPageRes) Headers() map[string]string {
	return map[string]string{}
}

func (res roundsPageRes) Empty() bool {
	return false
}

type submitRes struct {
	coordinator.Submission
}

func (res submitRes) Code() int {
	return http.StatusAccepted
}

func (res submitRes) Headers() map[string]string {
	return map[string]string{}
}

func (res submitRes) Empty() bool {
	return false
}
