//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideEventBus,
	ProvideResearchAPIClient,
	ProvideProjectRepository,
	ProvideSuggestionProvider,
	ProvideSourceStore,
	ProvideOutlineStore,
	ProvideController,
	ProvideSuggestionService,
	wire.Struct(new(Container), "Config", "Logger", "Bus", "Repo", "Sources", "Outline", "Controller", "Suggestions"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
