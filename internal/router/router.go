package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dinepos/kds/internal/auth"
	"github.com/dinepos/kds/internal/config"
	"github.com/dinepos/kds/internal/enum"
	"github.com/dinepos/kds/internal/handler"
	"github.com/dinepos/kds/internal/kitchen"
	mw "github.com/dinepos/kds/internal/middleware"
	"github.com/dinepos/kds/internal/ws"
)

// New creates a Chi router with all board routes wired up.
func New(cfg *config.Config, ctrl *kitchen.Controller, users *auth.Users, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration: the board UI is served separately
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ctrl.FeedConnected() {
			w.Write([]byte(`{"status":"ok","feed":"connected"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","feed":"disconnected"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/kitchen", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, req)
	})

	// Protected board routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRole(enum.UserRoleKitchen, enum.UserRoleManager))

		kitchenHandler := handler.NewKitchenHandler(ctrl, cfg.CookingDefaultMinutes)
		r.Route("/kitchen", kitchenHandler.RegisterRoutes)
	})

	return r
}
