package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pkgerrors "github.com/absmach/fedavg/pkg/errors"
	"github.com/cenkalti/backoff/v5"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout    = 10
	reconnTimeout  = 1
	disconnTimeout = 250
)

var (
	errPublishTimeout     = errors.New("failed to publish due to timeout reached")
	errSubscribeTimeout   = errors.New("failed to subscribe due to timeout reached")
	errUnsubscribeTimeout = errors.New("failed to unsubscribe due to timeout reached")
	errConnectTimeout     = errors.New("timeout reached while connecting to MQTT broker")
	errEmptyTopic         = errors.New("empty topic")
	errEmptyID            = errors.New("empty ID")
)

// Handler processes one inbound message. Errors are logged by the pubsub.
type Handler func(topic string, payload []byte) error

type PubSub interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
}

type Config struct {
	Address  string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
	// ConnectRetries bounds the attempts made to reach the broker at startup.
	ConnectRetries uint
}

type pubsub struct {
	client  mqtt.Client
	qos     byte
	retain  bool
	timeout time.Duration
	logger  *slog.Logger

	mu            sync.Mutex
	subscriptions map[string]mqtt.MessageHandler
}

// NewPubSub connects to the broker. The connection is re-established
// automatically when lost and every subscription is renewed on reconnect.
func NewPubSub(ctx context.Context, cfg Config, logger *slog.Logger) (PubSub, error) {
	if cfg.ClientID == "" {
		return nil, errEmptyID
	}

	ps := &pubsub{
		qos:           cfg.QoS,
		retain:        cfg.Retain,
		timeout:       cfg.Timeout,
		logger:        logger,
		subscriptions: make(map[string]mqtt.MessageHandler),
	}

	client, err := ps.connect(ctx, cfg)
	if err != nil {
		return nil, errors.Join(pkgerrors.ErrTransport, err)
	}
	ps.client = client

	return ps, nil
}

func (ps *pubsub) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return errEmptyTopic
	}

	token := ps.client.Publish(topic, ps.qos, ps.retain, payload)
	if token.Error() != nil {
		return errors.Join(pkgerrors.ErrTransport, token.Error())
	}

	if ok := token.WaitTimeout(ps.timeout); !ok {
		return errors.Join(pkgerrors.ErrTransport, errPublishTimeout)
	}

	return token.Error()
}

func (ps *pubsub) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errEmptyTopic
	}

	h := ps.mqttHandler(handler)
	if err := ps.subscribe(topic, h); err != nil {
		return err
	}

	ps.mu.Lock()
	ps.subscriptions[topic] = h
	ps.mu.Unlock()

	return nil
}

func (ps *pubsub) Unsubscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return errEmptyTopic
	}

	ps.mu.Lock()
	delete(ps.subscriptions, topic)
	ps.mu.Unlock()

	token := ps.client.Unsubscribe(topic)
	if token.Error() != nil {
		return token.Error()
	}

	if ok := token.WaitTimeout(ps.timeout); !ok {
		return errUnsubscribeTimeout
	}

	return nil
}

func (ps *pubsub) Disconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		ps.client.Disconnect(disconnTimeout)

		return nil
	}
}

func (ps *pubsub) subscribe(topic string, h mqtt.MessageHandler) error {
	token := ps.client.Subscribe(topic, ps.qos, h)
	if token.Error() != nil {
		return errors.Join(pkgerrors.ErrTransport, token.Error())
	}
	if ok := token.WaitTimeout(ps.timeout); !ok {
		return errors.Join(pkgerrors.ErrTransport, errSubscribeTimeout)
	}

	return token.Error()
}

// resubscribe renews subscriptions after a reconnect; clean sessions drop
// them on the broker side.
func (ps *pubsub) resubscribe(client mqtt.Client) {
	ps.mu.Lock()
	subs := make(map[string]mqtt.MessageHandler, len(ps.subscriptions))
	for topic, h := range ps.subscriptions {
		subs[topic] = h
	}
	ps.mu.Unlock()

	for topic, h := range subs {
		token := client.Subscribe(topic, ps.qos, h)
		if ok := token.WaitTimeout(ps.timeout); !ok || token.Error() != nil {
			ps.logger.Warn("Failed to renew MQTT subscription", slog.String("topic", topic), slog.Any("error", token.Error()))

			continue
		}
		ps.logger.Info("Renewed MQTT subscription", slog.String("topic", topic))
	}
}

func (ps *pubsub) connect(ctx context.Context, cfg Config) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Address).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout * time.Second).
		SetMaxReconnectInterval(reconnTimeout * time.Minute).
		SetOrderMatters(true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		ps.logger.Info("MQTT connection established", slog.String("broker", cfg.Address))
		ps.resubscribe(c)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		args := []any{}
		if err != nil {
			args = append(args, slog.Any("error", err))
		}

		ps.logger.Warn("MQTT connection lost", args...)
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, options *mqtt.ClientOptions) {
		args := []any{}
		if options != nil {
			args = append(args,
				slog.String("client_id", options.ClientID),
				slog.String("username", options.Username),
			)
		}

		ps.logger.Info("MQTT reconnecting", args...)
	})

	client := mqtt.NewClient(opts)

	retries := cfg.ConnectRetries
	if retries == 0 {
		retries = 1
	}

	return backoff.Retry(ctx, func() (mqtt.Client, error) {
		token := client.Connect()
		if ok := token.WaitTimeout(cfg.Timeout); !ok {
			return nil, errConnectTimeout
		}
		if token.Error() != nil {
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
		}

		return client, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(retries),
		backoff.WithNotify(func(err error, next time.Duration) {
			ps.logger.Warn("MQTT connect failed, retrying",
				slog.Any("error", err),
				slog.String("retry_in", next.String()),
			)
		}),
	)
}

func (ps *pubsub) mqttHandler(h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		if err := h(m.Topic(), m.Payload()); err != nil {
			ps.logger.Warn(fmt.Sprintf("Failed to handle MQTT message: %s", err), slog.String("topic", m.Topic()))
		}

		m.Ack()
	}
}
