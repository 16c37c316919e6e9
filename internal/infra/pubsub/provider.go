package pubsub

import (
	"context"
	"log/slog"

	"gatekeeper/config"
	"gatekeeper/internal/domain/constants"
	"gatekeeper/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// noopDispatcher only logs, for environments without a delivery worker
type noopDispatcher struct {
	logger *slog.Logger
}

func (p *noopDispatcher) Dispatch(ctx context.Context, msg *service.OutboundMessage) error {
	p.logger.DebugContext(ctx, "[NoopPubSub] Message dispatch disabled, skipping",
		slog.String("kind", string(msg.Kind)),
		slog.String("channel", string(msg.Channel)),
	)

	return nil
}

func (p *noopDispatcher) Close() error {
	return nil
}

// DispatcherParams holds dependencies for MessageDispatcher, injected by Fx
type DispatcherParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewMessageDispatcher creates a MessageDispatcher based on configuration
func NewMessageDispatcher(params DispatcherParams) (service.MessageDispatcher, error) {
	cfg := params.Config.PubSub
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" || cfg.Provider == constants.PubSubProviderNoop {
		logger.Info("PubSub not configured, using no-op dispatcher")

		return &noopDispatcher{logger: logger}, nil
	}

	var dispatcher service.MessageDispatcher
	var err error

	switch cfg.Provider {
	case constants.PubSubProviderLocal:
		if cfg.LocalEndpoint == "" {
			return nil, errors.New("local endpoint is required for local provider")
		}
		logger.Info("Using local HTTP dispatcher for Pub/Sub",
			slog.String("endpoint", cfg.LocalEndpoint),
		)

		dispatcher = NewLocalHTTPDispatcher(cfg.LocalEndpoint, logger)

	case constants.PubSubProviderGoogle:
		if cfg.ProjectID == "" {
			return nil, errors.New("project ID is required for google provider")
		}
		if cfg.TopicID == "" {
			return nil, errors.New("topic ID is required for google provider")
		}

		dispatcher, err = NewGooglePubSubDispatcher(params.Ctx, cfg.ProjectID, cfg.TopicID, logger)
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.Errorf("unknown pubsub provider: %s", cfg.Provider)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing MessageDispatcher")

			return dispatcher.Close()
		},
	})

	return dispatcher, nil
}

// Module provides the Pub/Sub FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewMessageDispatcher),
)
