//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"flowboard/infrastructure/config"
	"flowboard/interfaces/http/rest"
	"flowboard/pkg/observability"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Storage *Storage
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Router  *rest.Router
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDomainConfig,
	ProvideStorage,
	ProvideSessionRepository,
	ProvideNodeRepository,
	ProvideEdgeRepository,
	ProvideBlitzRepository,
	ProvideSessionLocker,
	ProvideAuditPublisher,
	ProvideMetrics,
	ProvideTracer,
	ProvideIPRateLimiter,
	ProvideUserRateLimiter,
	ProvideSessionService,
	ProvideNodeService,
	ProvideEdgeService,
	ProvideLifecycleService,
	ProvideScoringService,
	ProvideBlitzService,
	ProvideRouterServices,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
