package main

import (
	"context"
	"log/slog"
	"os"

	"gatekeeper/config"
	"gatekeeper/internal/delivery"
	"gatekeeper/internal/delivery/api"
	"gatekeeper/internal/delivery/api/middleware"
	"gatekeeper/internal/delivery/api/router/handler"
	"gatekeeper/internal/delivery/api/session"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/infra/auth"
	"gatekeeper/internal/infra/auth/google"
	logs "gatekeeper/internal/infra/log"
	"gatekeeper/internal/infra/metrics"
	"gatekeeper/internal/infra/persistence/postgres"
	"gatekeeper/internal/infra/pubsub"
	"gatekeeper/internal/infra/qrcode"
	"gatekeeper/internal/usecase/impl"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/thejerf/abtime"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle
	fx.Shutdowner

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectMiddleware(),
		injectHandler(),
		injectDelivery(),
		fx.Invoke(
			impl.SeedScopeCatalogue,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		postgres.New,
		newClock,
		fx.Annotate(
			metrics.NewRegistry,
			fx.As(new(prometheus.Registerer)),
			fx.As(new(prometheus.Gatherer)),
		),
	)
}

// newClock is the wall clock used by credential issuance and resolution.
func newClock() abtime.AbstractTime {
	return abtime.NewRealTime()
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewTransactionManager,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTCodec,
			auth.NewCodeGenerator,
			google.NewVerifier,
			pubsub.NewMessageDispatcher,
			qrcode.NewFromConfig,
			fx.Annotate(
				metrics.NewCollector,
				fx.As(new(service.AuthMetrics)),
			),
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthPolicy,
			impl.NewScopeAuthority,
			impl.NewResolver,
			impl.NewAuthorizationService,
			impl.NewIssuanceService,
			impl.NewAPIKeyService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			session.NewCookies,
			middleware.NewAuthMiddleware,
			middleware.NewRateLimiter,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAuthHandler,
			handler.NewSessionHandler,
			handler.NewAPIKeyHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))

				// Trigger graceful shutdown to execute all OnStop hooks
				if shutdownErr := params.Shutdown(); shutdownErr != nil {
					slog.Error("Failed to shutdown gracefully", slog.Any("error", shutdownErr))
					os.Exit(1)
				}
			}
		}()
	}
}
