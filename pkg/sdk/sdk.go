package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	CTJSON string = "application/json"
	CTCBOR string = "application/cbor"

	roundHeader = "X-Fedavg-Round"
)

type Status struct {
	Round     uint64    `json:"round"`
	Phase     string    `json:"phase"`
	Expected  int       `json:"expected_clients"`
	Submitted []int     `json:"submitted_clients"`
	NumParams int       `json:"num_params"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoundInfo struct {
	Round     uint64 `json:"round"`
	NumParams int    `json:"num_params"`
	Layers    int    `json:"layers"`
}

type RoundPage struct {
	Offset uint64      `json:"offset"`
	Limit  uint64      `json:"limit"`
	Total  uint64      `json:"total"`
	Rounds []RoundInfo `json:"rounds"`
}

type Submission struct {
	ClientID    int    `json:"client_id"`
	Round       uint64 `json:"round"`
	Overwritten bool   `json:"overwritten"`
	Completed   bool   `json:"completed"`
}

// Model is an encoded global model as served by the coordinator.
type Model struct {
	Round uint64
	Data  []byte
}

type SDK interface {
	// Status returns the round in progress.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status.Round, status.Submitted)
	Status() (Status, error)

	// GlobalModel downloads the encoded current global model.
	//
	// example:
	//  model, _ := sdk.GlobalModel()
	//  os.WriteFile("global_parameters.cbor", model.Data, 0o644)
	GlobalModel() (Model, error)

	// ListRounds lists archived rounds.
	//
	// example:
	//  page, _ := sdk.ListRounds(0, 10)
	//  fmt.Println(page.Total)
	ListRounds(offset, limit uint64) (RoundPage, error)

	// GetRound downloads the encoded global model of an archived round.
	GetRound(round uint64) (Model, error)

	// SubmitUpdate uploads an encoded update on behalf of a client.
	//
	// example:
	//  data, _ := os.ReadFile("client_0_parameters.cbor")
	//  sub, _ := sdk.SubmitUpdate(0, data)
	SubmitUpdate(clientID int, data []byte) (Submission, error)
}

type fedSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &fedSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *fedSDK) Status() (Status, error) {
	body, _, err := sdk.processRequest(http.MethodGet, sdk.coordinatorURL+"/status", CTJSON, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *fedSDK) GlobalModel() (Model, error) {
	return sdk.model(sdk.coordinatorURL + "/model")
}

func (sdk *fedSDK) ListRounds(offset, limit uint64) (RoundPage, error) {
	url := fmt.Sprintf("%s/rounds?offset=%d&limit=%d", sdk.coordinatorURL, offset, limit)

	body, _, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return RoundPage{}, err
	}

	var page RoundPage
	if err := json.Unmarshal(body, &page); err != nil {
		return RoundPage{}, err
	}

	return page, nil
}

func (sdk *fedSDK) GetRound(round uint64) (Model, error) {
	return sdk.model(fmt.Sprintf("%s/rounds/%d", sdk.coordinatorURL, round))
}

func (sdk *fedSDK) SubmitUpdate(clientID int, data []byte) (Submission, error) {
	url := fmt.Sprintf("%s/clients/%d/params", sdk.coordinatorURL, clientID)

	body, _, err := sdk.processRequest(http.MethodPost, url, CTCBOR, data, http.StatusAccepted)
	if err != nil {
		return Submission{}, err
	}

	var sub Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		return Submission{}, err
	}

	return sub, nil
}

func (sdk *fedSDK) model(url string) (Model, error) {
	body, header, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return Model{}, err
	}

	m := Model{Data: body}
	if v := header.Get(roundHeader); v != "" {
		if _, err := fmt.Sscan(v, &m.Round); err != nil {
			return Model{}, fmt.Errorf("invalid %s header %q: %w", roundHeader, v, err)
		}
	}

	return m, nil
}

func (sdk *fedSDK) processRequest(method, reqURL, contentType string, data []byte, expectedRespCode int) ([]byte, http.Header, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, nil, err
	}

	req.Header.Add("Content-Type", contentType)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, nil, err
	}

	if resp.StatusCode != expectedRespCode {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return []byte{}, nil, fmt.Errorf("unexpected response code %d: %s", resp.StatusCode, e.Error)
		}

		return []byte{}, nil, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, resp.Header, nil
}
