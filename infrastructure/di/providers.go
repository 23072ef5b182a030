package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/persist"
	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/application/store"
	"github.com/relight14/micropaymentcrawler-sub002/application/suggest"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/ai/gemini"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/config"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/messaging"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/persistence/dynamodb"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/persistence/researchapi"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
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

// ProvideEventBus creates the in-process notification bus
func ProvideEventBus(logger *zap.Logger) ports.EventBus {
	return messaging.NewMemoryBus(logger)
}

// ProvideResearchAPIClient creates the remote research service client
func ProvideResearchAPIClient(cfg *config.Config, logger *zap.Logger) *researchapi.Client {
	return researchapi.NewClient(cfg.ResearchAPIBaseURL, cfg.ResearchAPITimeoutDuration(), logger)
}

// ProvideProjectRepository selects the configured persistence backend
func ProvideProjectRepository(
	cfg *config.Config,
	dynamoClient *awsdynamodb.Client,
	apiClient *researchapi.Client,
	logger *zap.Logger,
) (ports.ProjectRepository, error) {
	switch cfg.PersistenceBackend {
	case config.BackendDynamoDB:
		return dynamodb.NewProjectRepository(dynamoClient, cfg.DynamoDBTable, logger), nil
	case config.BackendResearchAPI:
		return apiClient, nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.PersistenceBackend)
	}
}

// ProvideSuggestionProvider selects the configured AI collaborator
func ProvideSuggestionProvider(
	ctx context.Context,
	cfg *config.Config,
	apiClient *researchapi.Client,
	logger *zap.Logger,
) (ports.SuggestionProvider, error) {
	switch cfg.SuggestionProvider {
	case config.SuggesterGemini:
		return gemini.NewProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	case config.SuggesterResearchAPI:
		return apiClient, nil
	default:
		return nil, fmt.Errorf("unknown suggestion provider %q", cfg.SuggestionProvider)
	}
}

// ProvideSourceStore creates the source pool
func ProvideSourceStore(logger *zap.Logger) *store.SourceStore {
	return store.NewSourceStore(logger)
}

// ProvideOutlineStore creates the outline store
func ProvideOutlineStore(logger *zap.Logger) *store.OutlineStore {
	return store.NewOutlineStore(logger)
}

// ProvideController creates the session controller and attaches its
// persistence engine. The engine guards through the controller, so the two
// are wired in one step.
func ProvideController(
	cfg *config.Config,
	repo ports.ProjectRepository,
	bus ports.EventBus,
	sources *store.SourceStore,
	outline *store.OutlineStore,
	logger *zap.Logger,
) *session.Controller {
	controller := session.NewController(repo, bus, sources, outline, logger)
	controller.SetEngine(persist.NewEngine(controller, repo, bus, cfg.DebounceWindow(), logger))
	return controller
}

// ProvideSuggestionService creates the AI suggestion coordinator
func ProvideSuggestionService(
	provider ports.SuggestionProvider,
	controller *session.Controller,
	logger *zap.Logger,
) *suggest.Service {
	return suggest.NewService(provider, controller, logger)
}
