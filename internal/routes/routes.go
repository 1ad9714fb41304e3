package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/todo-backend/internal/handlers"
	"github.com/AnshRaj112/todo-backend/internal/middleware"
	"github.com/AnshRaj112/todo-backend/internal/services"
	"github.com/AnshRaj112/todo-backend/internal/store"
)

// Deps is everything the router needs. Redis, Uploader and Events may be nil.
type Deps struct {
	Accounts store.AccountStore
	Tasks    store.TaskStore
	Tokens   *services.TokenService
	Events   *services.EventHub
	Uploader services.Uploader
	Redis    *redis.Client

	AllowedOrigins  []string
	Production      bool
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewRouter builds the full HTTP surface.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORS(d.AllowedOrigins))

	// Production: SecurityHeaders → GlobalRateLimit → AuthRateLimit.
	// Redis limits apply everywhere Redis is configured.
	if d.Production {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
	}
	if d.Redis != nil {
		r.Use(middleware.RedisRateLimit(d.Redis, d.RateLimitMax, d.RateLimitWindow))
	}

	SetupRoutes(r, d)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.NotFound)
	return r
}

func SetupRoutes(r chi.Router, d Deps) {
	// Keep the publisher a true nil interface when there is no hub.
	var publisher handlers.EventPublisher
	if d.Events != nil {
		publisher = d.Events
	}

	auth := handlers.NewAuthHandler(d.Accounts, d.Tokens)
	todos := handlers.NewTodoHandler(d.Tasks, publisher)
	meta := handlers.NewMetaHandler(d.Accounts, d.Tasks)
	attachments := handlers.NewAttachmentHandler(d.Tasks, d.Uploader, publisher)

	// Public
	r.Get("/", meta.Root)
	r.Get("/api/health", meta.Health)
	r.Post("/api/auth/register", auth.Register)
	r.Post("/api/auth/login", auth.Login)

	if d.Events != nil {
		r.Get("/ws/todos", handlers.NewRealtimeHandler(d.Tokens, d.Events).Todos)
	}

	// Bearer token required. Auth is attached per route so unmatched paths
	// still fall through to the 404 handler.
	protected := r.With(middleware.RequireAuth(d.Tokens))

	protected.Get("/api/auth/me", auth.Me)

	protected.Get("/api/todos", todos.List)
	protected.Post("/api/todos", todos.Create)
	protected.Get("/api/todos/{id}", todos.Get)
	protected.Put("/api/todos/{id}", todos.Update)
	protected.Delete("/api/todos/{id}", todos.Delete)
	protected.Patch("/api/todos/{id}/toggle", todos.Toggle)
	protected.Post("/api/todos/{id}/attachment", attachments.Upload)
}
