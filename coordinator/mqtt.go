package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/mqtt"
)

const DefTopicPrefix = "fed"

var _ Transport = (*mqttTransport)(nil)

type mqttTransport struct {
	pubsub mqtt.PubSub
	prefix string
	logger *slog.Logger
}

// NewMQTTTransport receives updates on {prefix}/client/{id}/params and
// publishes the global model on {prefix}/global/params.
func NewMQTTTransport(pubsub mqtt.PubSub, prefix string, logger *slog.Logger) Transport {
	if prefix == "" {
		prefix = DefTopicPrefix
	}

	return &mqttTransport{
		pubsub: pubsub,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger,
	}
}

func (t *mqttTransport) Subscribe(ctx context.Context, handler Handler) error {
	topic := ClientTopic(t.prefix, "+")

	if err := t.pubsub.Subscribe(ctx, topic, func(topic string, payload []byte) error {
		clientID, err := ParseClientTopic(t.prefix, topic)
		if err != nil {
			return err
		}

		return handler(ctx, clientID, payload)
	}); err != nil {
		return err
	}

	t.logger.InfoContext(ctx, "Subscribed to client updates", slog.String("topic", topic))

	return nil
}

func (t *mqttTransport) Publish(ctx context.Context, payload []byte) error {
	return t.pubsub.Publish(ctx, GlobalTopic(t.prefix), payload)
}

func (t *mqttTransport) Close(ctx context.Context) error {
	if err := t.pubsub.Unsubscribe(ctx, ClientTopic(t.prefix, "+")); err != nil {
		t.logger.WarnContext(ctx, "Failed to unsubscribe from client updates", slog.Any("error", err))
	}

	return t.pubsub.Disconnect(ctx)
}

// ClientTopic returns the topic a client publishes its updates to.
func ClientTopic(prefix, clientID string) string {
	return prefix + "/client/" + clientID + "/params"
}

// GlobalTopic returns the topic the global model is broadcast on.
func GlobalTopic(prefix string) string {
	return prefix + "/global/params"
}

// ParseClientTopic extracts the client id from an update topic. Ids must be
// non-negative integers; range checks are left to the coordinator.
func ParseClientTopic(prefix, topic string) (int, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/client/")
	if !ok {
		return 0, fmt.Errorf("%w: unexpected topic %q", fl.ErrInvalidClient, topic)
	}
	raw, ok := strings.CutSuffix(rest, "/params")
	if !ok || raw == "" || strings.Contains(raw, "/") {
		return 0, fmt.Errorf("%w: unexpected topic %q", fl.ErrInvalidClient, topic)
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q is not a client id", fl.ErrInvalidClient, raw)
	}

	return id, nil
}
