//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"loom-backend/application/commands/bus"
	"loom-backend/application/ports"
	querybus "loom-backend/application/queries/bus"
	"loom-backend/application/services"
	"loom-backend/domain/versioning"
	"loom-backend/infrastructure/config"
	"loom-backend/interfaces/http/rest"
	"loom-backend/interfaces/websocket"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *zap.Logger
	TreeRepo          ports.TreeRepository
	SnapshotStore     ports.SnapshotStore
	EventBus          ports.EventBus
	CommandBus        *bus.CommandBus
	QueryBus          *querybus.QueryBus
	CompletionService *services.CompletionService
	History           *versioning.History
	Hub               *websocket.Hub
	Router            *rest.Router
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideTreeConfig,
	ProvideSnapshotStore,
	ProvideTreeRepository,
	ProvideEventBus,
	ProvideCompletionProvider,
	ProvideLayoutEngine,
	ProvideBranchingEngine,
	ProvideThreadBuilder,
	ProvideHistory,
	ProvideBlockValidator,
	ProvideCompletionService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideTokenService,
	ProvideRateLimiter,
	ProvideHub,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
