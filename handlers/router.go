// Package handlers exposes a Launcher over HTTP: profile management, launch
// control and a WebSocket console.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mclauncher/launcher"
)

// NewRouter wires every endpoint against l.
func NewRouter(l *launcher.Launcher, log *zap.SugaredLogger) http.Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	profiles := NewProfileHandler(l, log)
	settingsHandler := NewSettingsHandler(l, log)
	servers := NewServerHandler(l, log)
	launch := NewLaunchHandler(l, log)
	crashes := NewCrashReportHandler(l)
	consoleHandler := NewConsoleHandler(l, log)

	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Route("/api", func(api chi.Router) {
		api.Get("/profiles", profiles.List)
		api.Post("/profiles", profiles.Create)
		api.Put("/profiles/{id}/name", profiles.Rename)
		api.Delete("/profiles/{id}", profiles.Delete)
		api.Post("/profiles/{id}/select", profiles.Select)
		api.Get("/profiles/{id}/icon", profiles.Icon)
		api.Get("/profiles/{id}/jars", profiles.Jars)

		api.Get("/profiles/{id}/crash-reports", crashes.List)
		api.Get("/profiles/{id}/crash-reports/{name}", crashes.Read)
		api.Delete("/profiles/{id}/crash-reports/{name}", crashes.Delete)

		api.Get("/settings", settingsHandler.Get)
		api.Put("/settings", settingsHandler.Update)

		api.Get("/servers", servers.List)
		api.Post("/servers", servers.Create)
		api.Delete("/servers/{name}", servers.Delete)

		api.Post("/launch", launch.Launch)
		api.Post("/launch/cancel", launch.Cancel)
		api.Get("/status", launch.Status)

		api.Handle("/console", consoleHandler.WebSocket())
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
