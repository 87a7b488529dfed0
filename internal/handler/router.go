package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tasknest/tasknest-go/internal/middleware"
	"github.com/tasknest/tasknest-go/internal/repository"
	"github.com/tasknest/tasknest-go/internal/service"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Auth           *service.AuthService
	Tasks          *service.TaskService
	Tokens         middleware.TokenVerifier
	Health         repository.HealthChecker
	RequestTimeout time.Duration
	ExposeErrors   bool
}

// NewRouter mounts every route on a chi router.
func NewRouter(d Deps) http.Handler {
	authHandler := NewAuthHandler(d.Auth, d.ExposeErrors)
	taskHandler := NewTaskHandler(d.Tasks, d.ExposeErrors)
	healthHandler := NewHealthHandler(d.Health, d.ExposeErrors)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/store", healthHandler.HandleStore)

	r.Post("/auth/signup", authHandler.HandleSignup)
	r.Post("/auth/login", authHandler.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(d.Tokens))
		r.Get("/auth/me", authHandler.HandleMe)

		r.Get("/tasks", taskHandler.HandleList)
		r.Post("/tasks", taskHandler.HandleCreate)
		r.Patch("/tasks/{id}", taskHandler.HandleUpdate)
		r.Delete("/tasks/{id}", taskHandler.HandleDelete)
	})

	return r
}
