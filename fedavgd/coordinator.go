package fedavgd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/fedavg"
	"github.com/absmach/fedavg/coordinator"
	"github.com/absmach/fedavg/coordinator/api"
	"github.com/absmach/fedavg/coordinator/middleware"
	"github.com/absmach/fedavg/pkg/fl"
	"github.com/absmach/fedavg/pkg/mqtt"
	"github.com/absmach/fedavg/pkg/params"
	"github.com/absmach/fedavg/pkg/storage"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName            = "fedavg"
	defHTTPPort        = "9090"
	mqttConnectRetries = 5

	TransportMQTT = "mqtt"
	TransportFile = "file"
)

var errUnknownTransport = errors.New("unknown transport")

type Config struct {
	LogLevel       string        `env:"FEDAVG_LOG_LEVEL"       envDefault:"info"`
	InstanceID     string        `env:"FEDAVG_INSTANCE_ID"`
	Clients        int           `env:"FEDAVG_CLIENTS"         envDefault:"2"`
	Transport      string        `env:"FEDAVG_TRANSPORT"       envDefault:"mqtt"`
	MQTTAddress    string        `env:"FEDAVG_MQTT_ADDRESS"    envDefault:"tcp://localhost:1883"`
	MQTTQoS        uint8         `env:"FEDAVG_MQTT_QOS"        envDefault:"1"`
	MQTTTimeout    time.Duration `env:"FEDAVG_MQTT_TIMEOUT"    envDefault:"30s"`
	MQTTRetain     bool          `env:"FEDAVG_MQTT_RETAIN"     envDefault:"true"`
	MQTTUsername   string        `env:"FEDAVG_MQTT_USERNAME"`
	MQTTPassword   string        `env:"FEDAVG_MQTT_PASSWORD"`
	TopicPrefix    string        `env:"FEDAVG_TOPIC_PREFIX"    envDefault:"fed"`
	StateFile      string        `env:"FEDAVG_STATE_FILE"      envDefault:"global_parameters.cbor"`
	FileDir        string        `env:"FEDAVG_FILE_DIR"        envDefault:"."`
	FilePoll       time.Duration `env:"FEDAVG_FILE_POLL"       envDefault:"1s"`
	Rounds         uint64        `env:"FEDAVG_ROUNDS"          envDefault:"0"`
	PersistRetries uint          `env:"FEDAVG_PERSIST_RETRIES" envDefault:"5"`
	Seed           uint64        `env:"FEDAVG_SEED"            envDefault:"0"`
	ConfigFile     string        `env:"FEDAVG_CONFIG_FILE"`
	History        storage.Config
	HistoryKeep    uint64        `env:"FEDAVG_HISTORY_KEEP"    envDefault:"0"`
	Server         server.Config `envPrefix:"FEDAVG_HTTP_"`
	OTELURL        url.URL       `env:"FEDAVG_OTEL_URL"`
	TraceRatio     float64       `env:"FEDAVG_TRACE_RATIO"     envDefault:"0"`
}

func NewLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

// StartCoordinator runs the coordinator until ctx is cancelled, the
// configured number of rounds completes or a fatal error occurs.
func StartCoordinator(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = defHTTPPort
	}

	arch := params.DefaultArchitecture()
	mqttClientID := svcName + "-" + cfg.InstanceID
	if cfg.ConfigFile != "" {
		fileCfg, err := fedavg.LoadConfig(cfg.ConfigFile)
		if err != nil {
			return err
		}
		if len(fileCfg.Model.Layers) > 0 {
			arch = fileCfg.Model.Architecture()
		}
		if fileCfg.Coordinator.ClientID != "" {
			mqttClientID = fileCfg.Coordinator.ClientID
		}
		if fileCfg.Coordinator.Username != "" {
			cfg.MQTTUsername = fileCfg.Coordinator.Username
			cfg.MQTTPassword = fileCfg.Coordinator.Password
		}
	}

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.InstanceID, cfg.TraceRatio)
		if err != nil {
			return fmt.Errorf("failed to initialize opentelemetry: %w", err)
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	store, err := fl.NewFileStore(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}

	history, err := storage.New(cfg.History)
	if err != nil {
		return fmt.Errorf("failed to open round history: %w", err)
	}
	defer func() {
		if err := history.Close(); err != nil {
			logger.Error("error closing round history", slog.Any("error", err))
		}
	}()

	var transport coordinator.Transport
	switch cfg.Transport {
	case TransportMQTT:
		pubsub, err := mqtt.NewPubSub(ctx, mqtt.Config{
			Address:  cfg.MQTTAddress,
			ClientID: mqttClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			QoS:      cfg.MQTTQoS,
			Retain:   cfg.MQTTRetain,
			Timeout:  cfg.MQTTTimeout,

			ConnectRetries: mqttConnectRetries,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize mqtt pubsub: %w", err)
		}
		transport = coordinator.NewMQTTTransport(pubsub, cfg.TopicPrefix, logger)
	case TransportFile:
		transport, err = coordinator.NewFileTransport(cfg.FileDir, cfg.Clients, cfg.FilePoll, logger)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownTransport, cfg.Transport)
	}

	svc, err := coordinator.NewService(coordinator.Config{
		Clients:        cfg.Clients,
		Architecture:   arch,
		Seed:           cfg.Seed,
		PersistRetries: cfg.PersistRetries,
		HistoryKeep:    cfg.HistoryKeep,
	}, store, history, fl.NewFedAvgAggregator(), transport, logger)
	if err != nil {
		return err
	}
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	hs := httpserver.NewServer(ctx, cancel, svcName, cfg.Server, api.MakeHandler(svc, logger, cfg.InstanceID), logger)

	logger.Info("Starting coordinator",
		slog.String("transport", cfg.Transport),
		slog.Int("clients", cfg.Clients),
		slog.String("state_file", store.Path()),
		slog.Uint64("rounds", cfg.Rounds))

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	g.Go(func() error {
		defer cancel()

		err := coordinator.Serve(ctx, svc, transport, cfg.Rounds, logger)
		if cerr := transport.Close(context.Background()); cerr != nil {
			logger.Warn("error closing transport", slog.Any("error", cerr))
		}

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s service exited with error: %w", svcName, err)
	}

	return nil
}
