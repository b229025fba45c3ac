package coordinator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/mqtt"
	"github.com/absmach/fedavg/pkg/mqtt/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParseClientTopic(t *testing.T) {
	cases := []struct {
		desc  string
		topic string
		id    int
		err   error
	}{
		{desc: "valid topic", topic: "fed/client/3/params", id: 3},
		{desc: "client zero", topic: "fed/client/0/params", id: 0},
		{desc: "non numeric id", topic: "fed/client/abc/params", err: fl.ErrInvalidClient},
		{desc: "negative id", topic: "fed/client/-1/params", err: fl.ErrInvalidClient},
		{desc: "missing id", topic: "fed/client//params", err: fl.ErrInvalidClient},
		{desc: "nested id", topic: "fed/client/1/2/params", err: fl.ErrInvalidClient},
		{desc: "other prefix", topic: "other/client/1/params", err: fl.ErrInvalidClient},
		{desc: "global topic", topic: "fed/global/params", err: fl.ErrInvalidClient},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			id, err := coordinator.ParseClientTopic("fed", tc.topic)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.id, id)
		})
	}
}

func TestMQTTTransport(t *testing.T) {
	ctx := context.Background()
	pubsub := new(mocks.MockPubSub)

	var deliver mqtt.Handler
	pubsub.On("Subscribe", mock.Anything, "fed/client/+/params", mock.Anything).
		Run(func(args mock.Arguments) {
			deliver = args.Get(2).(mqtt.Handler)
		}).
		Return(nil).Once()

	transport := coordinator.NewMQTTTransport(pubsub, "", discarded)

	type delivery struct {
		clientID int
		payload  []byte
	}
	var got []delivery
	require.NoError(t, transport.Subscribe(ctx, func(_ context.Context, clientID int, payload []byte) error {
		got = append(got, delivery{clientID, payload})

		return nil
	}))
	require.NotNil(t, deliver)

	require.NoError(t, deliver("fed/client/2/params", []byte{0xa0}))
	assert.ErrorIs(t, deliver("fed/client/x/params", []byte{0xa0}), fl.ErrInvalidClient)
	assert.Equal(t, []delivery{{2, []byte{0xa0}}}, got)

	pubsub.On("Publish", mock.Anything, "fed/global/params", []byte{0x01}).Return(nil).Once()
	require.NoError(t, transport.Publish(ctx, []byte{0x01}))

	pubsub.On("Unsubscribe", mock.Anything, "fed/client/+/params").Return(errors.New("not connected")).Once()
	pubsub.On("Disconnect", mock.Anything).Return(nil).Once()
	require.NoError(t, transport.Close(ctx))

	pubsub.AssertExpectations(t)
}

func TestMQTTTransportCustomPrefix(t *testing.T) {
	pubsub := new(mocks.MockPubSub)
	pubsub.On("Publish", mock.Anything, "lab/fl/global/params", mock.Anything).Return(nil).Once()

	transport := coordinator.NewMQTTTransport(pubsub, "lab/fl/", discarded)
	require.NoError(t, transport.Publish(context.Background(), []byte{0x01}))

	pubsub.AssertExpectations(t)
}
