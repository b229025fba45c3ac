package fedavgd_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/absmach/fedavg/fedavgd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FEDAVG_CLIENTS", "3")
	t.Setenv("FEDAVG_HTTP_PORT", "9191")
	t.Setenv("FEDAVG_HISTORY", "badger")

	cfg, err := fedavgd.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Clients)
	assert.Equal(t, fedavgd.TransportMQTT, cfg.Transport)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTAddress)
	assert.True(t, cfg.MQTTRetain)
	assert.Equal(t, "fed", cfg.TopicPrefix)
	assert.Equal(t, "global_parameters.cbor", cfg.StateFile)
	assert.Equal(t, uint64(0), cfg.Rounds)
	assert.Equal(t, "9191", cfg.Server.Port)
	assert.Equal(t, "badger", cfg.History.Type)
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	t.Setenv("FEDAVG_CLIENTS", "many")

	_, err := fedavgd.LoadConfig()
	assert.Error(t, err)
}

func TestStartCoordinatorRejectsUnknownTransport(t *testing.T) {
	cfg, err := fedavgd.LoadConfig()
	require.NoError(t, err)
	cfg.Transport = "carrier-pigeon"
	cfg.StateFile = filepath.Join(t.TempDir(), "global_parameters.cbor")

	ctx, cancel := context.WithCancel(context.Background())
	err = fedavgd.StartCoordinator(ctx, cancel, cfg)
	assert.ErrorContains(t, err, "unknown transport")
}

func TestStartCoordinatorRejectsBadLogLevel(t *testing.T) {
	cfg, err := fedavgd.LoadConfig()
	require.NoError(t, err)
	cfg.LogLevel = "loud"

	ctx, cancel := context.WithCancel(context.Background())
	assert.Error(t, fedavgd.StartCoordinator(ctx, cancel, cfg))
}
