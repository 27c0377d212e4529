package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/smotta/flow-rag-api/app"
	"github.com/smotta/flow-rag-api/handlers"
	"github.com/smotta/flow-rag-api/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Logger)
	modelsHandler := handlers.NewModelsHandler(deps.Gateway, deps.Logger)
	documentsHandler := handlers.NewDocumentsHandler(deps.Loader, deps.Retrieval, deps.Logger)

	var auditProber handlers.AuditProber
	if deps.AuditDB != nil {
		auditProber = deps.AuditDB
	}
	healthHandler := handlers.NewHealthHandler(deps.Gateway, auditProber, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", chatHandler.HandleChat)

		r.Route("/models", func(r chi.Router) {
			r.Get("/", modelsHandler.HandleListModels)
			r.Post("/refresh", modelsHandler.HandleRefreshModels)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/load", documentsHandler.HandleLoadDocuments)
			r.Get("/stats", documentsHandler.HandleDocumentStats)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
