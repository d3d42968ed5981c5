package di

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"loom-backend/application/commands"
	"loom-backend/application/commands/bus"
	"loom-backend/application/ports"
	"loom-backend/application/queries"
	querybus "loom-backend/application/queries/bus"
	"loom-backend/application/services"
	"loom-backend/domain/branching"
	domaincfg "loom-backend/domain/config"
	"loom-backend/domain/core/aggregates"
	"loom-backend/domain/core/validators"
	"loom-backend/domain/layout"
	"loom-backend/domain/thread"
	"loom-backend/domain/versioning"
	"loom-backend/infrastructure/completion"
	"loom-backend/infrastructure/config"
	"loom-backend/infrastructure/messaging"
	dynamostore "loom-backend/infrastructure/persistence/dynamodb"
	"loom-backend/infrastructure/persistence/memory"
	"loom-backend/interfaces/http/rest"
	"loom-backend/interfaces/http/rest/handlers"
	"loom-backend/interfaces/websocket"
	"loom-backend/pkg/auth"
	pkgerrors "loom-backend/pkg/errors"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideTreeConfig selects the domain configuration for the environment
func ProvideTreeConfig(cfg *config.Config) *domaincfg.TreeConfig {
	return domaincfg.LoadTreeConfig(cfg.Environment)
}

// ProvideTreeRepository creates the live tree repository, seeded from a
// persisted snapshot when one exists.
func ProvideTreeRepository(
	ctx context.Context,
	cfg *config.Config,
	treeCfg *domaincfg.TreeConfig,
	snapshots ports.SnapshotStore,
	layoutEngine *layout.Engine,
	logger *zap.Logger,
) ports.TreeRepository {
	snapshot, err := snapshots.Load(ctx, cfg.WorkspaceID)
	if err == nil {
		if tree, importErr := aggregates.ImportTree(snapshot, treeCfg); importErr == nil {
			tree.ApplyLayout(layoutEngine.ComputeLayout(tree))
			tree.MarkEventsAsCommitted()
			logger.Info("tree restored from snapshot",
				zap.String("workspace_id", cfg.WorkspaceID),
				zap.Int("node_count", tree.NodeCount()))
			return memory.NewTreeRepository(tree)
		} else {
			logger.Warn("stored snapshot rejected, starting empty", zap.Error(importErr))
		}
	} else if !pkgerrors.IsNotFound(err) {
		logger.Warn("failed to load snapshot, starting empty", zap.Error(err))
	}
	return memory.NewTreeRepository(aggregates.NewTree(treeCfg))
}

// ProvideSnapshotStore selects the snapshot backend
func ProvideSnapshotStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SnapshotStore, error) {
	if cfg.SnapshotBackend == "dynamodb" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		return dynamostore.NewSnapshotStore(ProvideDynamoDBClient(awsCfg), cfg.DynamoDBTable, logger), nil
	}
	return memory.NewSnapshotStore(), nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBus creates the in-process event bus
func ProvideEventBus(logger *zap.Logger) ports.EventBus {
	return messaging.NewEventBus(logger)
}

// ProvideCompletionProvider selects the completion backend
func ProvideCompletionProvider(cfg *config.Config, logger *zap.Logger) ports.CompletionProvider {
	if cfg.CompletionBackend == "openai" {
		return completion.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, logger)
	}
	return completion.NewStubProvider()
}

// ProvideLayoutEngine creates the layout engine
func ProvideLayoutEngine(treeCfg *domaincfg.TreeConfig) *layout.Engine {
	return layout.NewEngine(treeCfg)
}

// ProvideBranchingEngine creates the branching engine
func ProvideBranchingEngine() *branching.Engine {
	return branching.NewEngine()
}

// ProvideThreadBuilder creates the thread builder
func ProvideThreadBuilder() *thread.Builder {
	return thread.NewBuilder()
}

// ProvideHistory creates the branch version history
func ProvideHistory() *versioning.History {
	return versioning.NewHistory()
}

// ProvideBlockValidator creates the request-level block validator
func ProvideBlockValidator(treeCfg *domaincfg.TreeConfig) *validators.BlockValidator {
	return validators.NewBlockValidator(treeCfg)
}

// ProvideCompletionService creates the completion service
func ProvideCompletionService(
	repo ports.TreeRepository,
	provider ports.CompletionProvider,
	builder *thread.Builder,
	layoutEngine *layout.Engine,
	blockValidator *validators.BlockValidator,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *services.CompletionService {
	return services.NewCompletionService(repo, provider, builder, layoutEngine, blockValidator, eventBus, logger)
}

// ProvideCommandBus creates the command bus with every handler registered
func ProvideCommandBus(
	repo ports.TreeRepository,
	snapshots ports.SnapshotStore,
	layoutEngine *layout.Engine,
	blockValidator *validators.BlockValidator,
	branchEngine *branching.Engine,
	history *versioning.History,
	eventBus ports.EventBus,
	treeCfg *domaincfg.TreeConfig,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()

	deleteHandler := commands.NewDeleteNodeHandler(repo, layoutEngine, eventBus, logger)
	updateHandler := commands.NewUpdateBlockContentHandler(repo, layoutEngine, eventBus, logger)
	displayHandler := commands.NewNodeDisplayHandler(repo, layoutEngine, eventBus, logger)
	importHandler := commands.NewImportTreeHandler(repo, snapshots, layoutEngine, eventBus, treeCfg, logger)
	saveHandler := commands.NewSaveSnapshotHandler(repo, snapshots, logger)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.DeleteNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return deleteHandler.Handle(ctx, cmd.(commands.DeleteNodeCommand))
		})},
		{commands.UpdateBlockContentCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return updateHandler.Handle(ctx, cmd.(commands.UpdateBlockContentCommand))
		})},
		{commands.RenameNodeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return displayHandler.HandleRename(ctx, cmd.(commands.RenameNodeCommand))
		})},
		{commands.SetNodeCollapsedCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return displayHandler.HandleSetCollapsed(ctx, cmd.(commands.SetNodeCollapsedCommand))
		})},
		{commands.SetBlockMinimizedCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return displayHandler.HandleSetBlockMinimized(ctx, cmd.(commands.SetBlockMinimizedCommand))
		})},
		{commands.ResizeBlockCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return displayHandler.HandleResizeBlock(ctx, cmd.(commands.ResizeBlockCommand))
		})},
		{commands.RemoveBlockCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return displayHandler.HandleRemoveBlock(ctx, cmd.(commands.RemoveBlockCommand))
		})},
		{commands.ImportTreeCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return importHandler.Handle(ctx, cmd.(commands.ImportTreeCommand))
		})},
		{commands.SaveSnapshotCommand{}, bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
			return saveHandler.Handle(ctx, cmd.(commands.SaveSnapshotCommand))
		})},
	}
	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, reg.handler); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// ProvideQueryBus creates the query bus with every handler registered
func ProvideQueryBus(
	repo ports.TreeRepository,
	builder *thread.Builder,
	layoutEngine *layout.Engine,
	history *versioning.History,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	nodeHandler := queries.NewGetNodeHandler(repo)
	threadHandler := queries.NewGetThreadHandler(repo, builder)
	layoutHandler := queries.NewGetLayoutHandler(repo, layoutEngine)
	exportHandler := queries.NewExportTreeHandler(repo)
	branchesHandler := queries.NewListBranchesHandler(history)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.GetNodeQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return nodeHandler.Handle(ctx, q.(queries.GetNodeQuery))
		})},
		{queries.GetChildrenQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return nodeHandler.HandleChildren(ctx, q.(queries.GetChildrenQuery))
		})},
		{queries.GetThreadQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return threadHandler.Handle(ctx, q.(queries.GetThreadQuery))
		})},
		{queries.GetLayoutQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return layoutHandler.Handle(ctx, q.(queries.GetLayoutQuery))
		})},
		{queries.ExportTreeQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return exportHandler.Handle(ctx, q.(queries.ExportTreeQuery))
		})},
		{queries.ListBranchesQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return branchesHandler.Handle(ctx, q.(queries.ListBranchesQuery))
		})},
		{queries.ListBranchesByNodeQuery{}, querybus.QueryHandlerFunc(func(ctx context.Context, q querybus.Query) (interface{}, error) {
			return branchesHandler.HandleByNode(ctx, q.(queries.ListBranchesByNodeQuery))
		})},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, reg.handler); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideTokenService creates the JWT token service, nil when auth is
// disabled so the middleware falls back to anonymous access.
func ProvideTokenService(cfg *config.Config) *auth.TokenService {
	if !cfg.EnableAuth {
		return nil
	}
	return auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour)
}

// ProvideRateLimiter creates the per-IP rate limiter
func ProvideRateLimiter(cfg *config.Config) auth.RateLimiter {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	return auth.NewTokenBucketLimiter(cfg.RateLimitPerMinute, time.Minute/time.Duration(cfg.RateLimitPerMinute))
}

// ProvideHub creates the websocket hub subscribed to tree events
func ProvideHub(eventBus ports.EventBus, logger *zap.Logger) *websocket.Hub {
	hub := websocket.NewHub(logger)
	hub.SubscribeToEvents(eventBus)
	return hub
}

// ProvideRouter assembles the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	repo ports.TreeRepository,
	layoutEngine *layout.Engine,
	blockValidator *validators.BlockValidator,
	branchEngine *branching.Engine,
	history *versioning.History,
	completionService *services.CompletionService,
	hub *websocket.Hub,
	eventBus ports.EventBus,
	tokens *auth.TokenService,
	limiter auth.RateLimiter,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	createNodeHandler := commands.NewCreateNodeHandler(repo, layoutEngine, blockValidator, eventBus, logger)
	createBranchHandler := commands.NewCreateBranchHandler(repo, layoutEngine, branchEngine, history, eventBus, logger)
	displayHandler := commands.NewNodeDisplayHandler(repo, layoutEngine, eventBus, logger)

	nodes := handlers.NewNodeHandler(commandBus, queryBus, createNodeHandler, displayHandler, errs, logger)
	branches := handlers.NewBranchHandler(queryBus, createBranchHandler, errs, logger)
	threads := handlers.NewThreadHandler(queryBus, errs, logger)
	tree := handlers.NewTreeHandler(commandBus, queryBus, cfg.WorkspaceID, errs, logger)
	completions := handlers.NewCompletionHandler(completionService, errs, logger)
	ws := websocket.ServeWS(hub, completionService, logger)

	return rest.NewRouter(nodes, branches, threads, tree, completions, ws, hub, tokens, limiter, cfg.EnableCORS, logger)
}
