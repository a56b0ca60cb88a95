package di

import (
	"context"
	"fmt"

	domaincfg "flowboard/domain/config"

	"flowboard/application/ports"
	"flowboard/application/services"
	"flowboard/infrastructure/config"
	"flowboard/infrastructure/messaging"
	"flowboard/infrastructure/messaging/eventbridge"
	"flowboard/infrastructure/persistence/dynamodb"
	"flowboard/infrastructure/persistence/memory"
	"flowboard/interfaces/http/rest"
	"flowboard/pkg/auth"
	"flowboard/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig selects the graph limits and scoring weights for
// the current environment
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	return domaincfg.LoadDomainConfig(cfg.Environment)
}

// Storage bundles the persistence ports behind a single construction
// point so both drivers can share one backing store instance.
type Storage struct {
	Sessions ports.SessionRepository
	Nodes    ports.NodeRepository
	Edges    ports.EdgeRepository
	Blitzes  ports.BlitzRepository
	Locker   ports.SessionLocker
}

// ProvideStorage creates the persistence layer for the configured driver.
// The memory driver carries no external dependencies and is the default
// outside production.
func ProvideStorage(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *Storage {
	if cfg.StorageDriver == "dynamodb" {
		store := dynamodb.NewStore(client, cfg.DynamoDBTable, cfg.IndexName, logger)
		return &Storage{
			Sessions: store,
			Nodes:    store.NodeStore(),
			Edges:    store.EdgeStore(),
			Blitzes:  store.BlitzStore(),
			Locker:   dynamodb.NewSessionLock(client, cfg.DynamoDBTable, logger),
		}
	}

	store := memory.NewStore()
	return &Storage{
		Sessions: store,
		Nodes:    store.NodeStore(),
		Edges:    store.EdgeStore(),
		Blitzes:  store.BlitzStore(),
		Locker:   store,
	}
}

// ProvideSessionRepository extracts the session repository port
func ProvideSessionRepository(s *Storage) ports.SessionRepository { return s.Sessions }

// ProvideNodeRepository extracts the node repository port
func ProvideNodeRepository(s *Storage) ports.NodeRepository { return s.Nodes }

// ProvideEdgeRepository extracts the edge repository port
func ProvideEdgeRepository(s *Storage) ports.EdgeRepository { return s.Edges }

// ProvideBlitzRepository extracts the blitz repository port
func ProvideBlitzRepository(s *Storage) ports.BlitzRepository { return s.Blitzes }

// ProvideSessionLocker extracts the session locker port
func ProvideSessionLocker(s *Storage) ports.SessionLocker { return s.Locker }

// ProvideAuditPublisher creates the audit trail sink. EventBridge is used
// when auditing is enabled and a bus is configured; otherwise events are
// logged locally.
func ProvideAuditPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.AuditPublisher {
	if cfg.EnableAudit && cfg.EventBusName != "" {
		return eventbridge.NewAuditPublisher(client, cfg.EventBusName, logger)
	}
	return messaging.NewLogPublisher(logger)
}

// ProvideMetrics creates metrics instance
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil)
	}
	return observability.NewMetrics(namespace, client)
}

// ProvideTracer creates the request tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("flowboard-" + cfg.Environment)
}

// ProvideIPRateLimiter creates the per-IP rate limiter. The dynamodb
// driver shares the application table so limits hold across Lambda
// instances; the memory driver keeps counters in process.
func ProvideIPRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.IPRateLimiter {
	if cfg.StorageDriver == "dynamodb" {
		return auth.NewIPRateLimiterFrom(
			auth.NewDistributedIPRateLimiter(client, cfg.DynamoDBTable, cfg.RateLimitPerMinute),
		)
	}
	return auth.NewIPRateLimiter(cfg.RateLimitPerMinute)
}

// ProvideUserRateLimiter creates the per-user rate limiter. Authenticated
// callers get twice the anonymous IP allowance.
func ProvideUserRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.UserRateLimiter {
	perMinute := cfg.RateLimitPerMinute * 2
	if cfg.StorageDriver == "dynamodb" {
		return auth.NewUserRateLimiterFrom(
			auth.NewDistributedUserRateLimiter(client, cfg.DynamoDBTable, perMinute),
		)
	}
	return auth.NewUserRateLimiter(perMinute)
}

// ProvideSessionService creates the session service
func ProvideSessionService(
	sessions ports.SessionRepository,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *services.SessionService {
	return services.NewSessionService(sessions, publisher, logger)
}

// ProvideNodeService creates the node service
func ProvideNodeService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	cfg *domaincfg.DomainConfig,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *services.NodeService {
	return services.NewNodeService(sessions, nodes, cfg, publisher, logger)
}

// ProvideEdgeService creates the edge service
func ProvideEdgeService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	locker ports.SessionLocker,
	cfg *domaincfg.DomainConfig,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *services.EdgeService {
	return services.NewEdgeService(sessions, nodes, edges, locker, cfg, publisher, logger)
}

// ProvideLifecycleService creates the lifecycle service
func ProvideLifecycleService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	locker ports.SessionLocker,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *services.LifecycleService {
	return services.NewLifecycleService(sessions, nodes, edges, locker, publisher, logger)
}

// ProvideScoringService creates the scoring service
func ProvideScoringService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	blitzes ports.BlitzRepository,
	cfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.ScoringService {
	return services.NewScoringService(sessions, nodes, edges, blitzes, cfg, logger)
}

// ProvideBlitzService creates the blitz service
func ProvideBlitzService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	blitzes ports.BlitzRepository,
	locker ports.SessionLocker,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *services.BlitzService {
	return services.NewBlitzService(sessions, nodes, blitzes, locker, publisher, logger)
}

// ProvideRouterServices bundles the application services for the router
func ProvideRouterServices(
	sessionService *services.SessionService,
	nodeService *services.NodeService,
	edgeService *services.EdgeService,
	lifecycleService *services.LifecycleService,
	scoringService *services.ScoringService,
	blitzService *services.BlitzService,
) rest.Services {
	return rest.Services{
		Sessions:  sessionService,
		Nodes:     nodeService,
		Edges:     edgeService,
		Lifecycle: lifecycleService,
		Scoring:   scoringService,
		Blitzes:   blitzService,
	}
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	svcs rest.Services,
	cfg *config.Config,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	ipLimiter *auth.IPRateLimiter,
	userLimiter *auth.UserRateLimiter,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(svcs, cfg, metrics, tracer, ipLimiter, userLimiter, logger)
}
