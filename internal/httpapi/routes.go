package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/duel-engine/internal/hub"
	"github.com/DoyleJ11/duel-engine/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(h *hub.Hub, wsOpts ws.Options, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Route("/areas", func(r chi.Router) {
		r.Post("/", CreateArea(h, log))
		r.Get("/", ListAreas(h))
		r.Delete("/{code}", DeleteArea(h))
		r.Get("/{code}/history", History(h))
		r.Get("/{code}/snapshot", Snapshot(h))
	})
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, wsOpts))
	return r
}
