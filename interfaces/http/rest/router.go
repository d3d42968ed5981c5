package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"loom-backend/interfaces/http/rest/handlers"
	"loom-backend/interfaces/http/rest/middleware"
	"loom-backend/interfaces/websocket"
	"loom-backend/pkg/auth"
	"loom-backend/pkg/common"
)

// Router creates and configures the HTTP router
type Router struct {
	nodes       *handlers.NodeHandler
	branches    *handlers.BranchHandler
	threads     *handlers.ThreadHandler
	tree        *handlers.TreeHandler
	completions *handlers.CompletionHandler
	ws          http.HandlerFunc
	hub         *websocket.Hub
	tokens      *auth.TokenService
	limiter     auth.RateLimiter
	enableCORS  bool
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	nodes *handlers.NodeHandler,
	branches *handlers.BranchHandler,
	threads *handlers.ThreadHandler,
	tree *handlers.TreeHandler,
	completions *handlers.CompletionHandler,
	ws http.HandlerFunc,
	hub *websocket.Hub,
	tokens *auth.TokenService,
	limiter auth.RateLimiter,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		nodes:       nodes,
		branches:    branches,
		threads:     threads,
		tree:        tree,
		completions: completions,
		ws:          ws,
		hub:         hub,
		tokens:      tokens,
		limiter:     limiter,
		enableCORS:  enableCORS,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.tokens, rt.limiter, rt.logger))

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", rt.nodes.CreateNode)
			r.Get("/{nodeID}", rt.nodes.GetNode)
			r.Delete("/{nodeID}", rt.nodes.DeleteNode)
			r.Get("/{nodeID}/children", rt.nodes.GetChildren)
			r.Put("/{nodeID}/name", rt.nodes.RenameNode)
			r.Put("/{nodeID}/collapsed", rt.nodes.SetCollapsed)
			r.Get("/{nodeID}/thread", rt.threads.GetThread)
			r.Get("/{nodeID}/branches", rt.branches.ListBranchesByNode)

			r.Route("/{nodeID}/blocks", func(r chi.Router) {
				r.Post("/", rt.nodes.AddBlock)
				r.Put("/{blockID}", rt.nodes.UpdateBlock)
				r.Delete("/{blockID}", rt.nodes.RemoveBlock)
				r.Put("/{blockID}/minimized", rt.nodes.SetBlockMinimized)
				r.Put("/{blockID}/size", rt.nodes.ResizeBlock)
			})
		})

		r.Route("/branches", func(r chi.Router) {
			r.Post("/", rt.branches.CreateBranch)
			r.Get("/", rt.branches.ListBranches)
		})

		r.Route("/tree", func(r chi.Router) {
			r.Get("/layout", rt.tree.GetLayout)
			r.Get("/export", rt.tree.Export)
			r.Post("/import", rt.tree.Import)
			r.Post("/snapshot", rt.tree.SaveSnapshot)
		})

		r.Post("/completions", rt.completions.Complete)
	})

	// WebSocket endpoint stays outside the JSON middleware stack.
	router.Get("/ws", rt.ws)

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": rt.hub.ConnectionCount(),
	})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
