package sdk_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/absmach/fedavg/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDK(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sdk.Status{Round: 4, Phase: "collecting", Expected: 2, Submitted: []int{1}})
	})
	mux.HandleFunc("GET /model", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", sdk.CTCBOR)
		w.Header().Set("X-Fedavg-Round", "4")
		_, _ = w.Write([]byte{0xa1, 0x01, 0x02})
	})
	mux.HandleFunc("GET /rounds", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("offset"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(sdk.RoundPage{Offset: 5, Limit: 10, Total: 6, Rounds: []sdk.RoundInfo{{Round: 5}}})
	})
	mux.HandleFunc("GET /rounds/{round}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	mux.HandleFunc("POST /clients/{id}/params", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sdk.CTCBOR, r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0x01}, body)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(sdk.Submission{ClientID: 1, Round: 4, Completed: true})
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := sdk.NewSDK(sdk.Config{CoordinatorURL: ts.URL})

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), status.Round)
	assert.Equal(t, []int{1}, status.Submitted)

	model, err := client.GlobalModel()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), model.Round)
	assert.Equal(t, []byte{0xa1, 0x01, 0x02}, model.Data)

	page, err := client.ListRounds(5, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), page.Total)
	require.Len(t, page.Rounds, 1)

	_, err = client.GetRound(9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	sub, err := client.SubmitUpdate(1, []byte{0x01})
	require.NoError(t, err)
	assert.True(t, sub.Completed)
}
