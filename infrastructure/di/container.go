package di

import (
	"context"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/application/store"
	"github.com/relight14/micropaymentcrawler-sub002/application/suggest"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/config"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/messaging/eventbridge"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Bus         ports.EventBus
	Repo        ports.ProjectRepository
	Sources     *store.SourceStore
	Outline     *store.OutlineStore
	Controller  *session.Controller
	Suggestions *suggest.Service

	detachEventBridge func()
}

// NewContainer wires all dependencies manually. Kept in sync with the Wire
// provider set; regenerate with `wire` when providers change.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dynamoClient := ProvideDynamoDBClient(awsCfg)
	apiClient := ProvideResearchAPIClient(cfg, logger)

	bus := ProvideEventBus(logger)

	repo, err := ProvideProjectRepository(cfg, dynamoClient, apiClient, logger)
	if err != nil {
		return nil, err
	}

	provider, err := ProvideSuggestionProvider(ctx, cfg, apiClient, logger)
	if err != nil {
		return nil, err
	}

	sources := ProvideSourceStore(logger)
	outline := ProvideOutlineStore(logger)
	controller := ProvideController(cfg, repo, bus, sources, outline, logger)
	suggestions := ProvideSuggestionService(provider, controller, logger)

	container := &Container{
		Config:      cfg,
		Logger:      logger,
		Bus:         bus,
		Repo:        repo,
		Sources:     sources,
		Outline:     outline,
		Controller:  controller,
		Suggestions: suggestions,
	}

	if cfg.EnableEventBridge {
		publisher := eventbridge.NewPublisher(ProvideEventBridgeClient(awsCfg), cfg.EventBusName, logger)
		container.detachEventBridge = publisher.Attach(bus)
	}

	return container, nil
}

// Shutdown releases container resources.
func (c *Container) Shutdown() {
	if c.detachEventBridge != nil {
		c.detachEventBridge()
	}
	c.Logger.Sync()
}
