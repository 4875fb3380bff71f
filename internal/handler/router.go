/*
Package handler provides the HTTP handlers and routing setup for the livechat server.

This file defines the main Router, applying middleware for CORS, request ids, logging
and panic recovery before delegating to the upload, WebSocket and static handlers.
*/
package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"livechat/internal/configs"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/resp"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "livechat"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Users   int    `json:"users"`
}

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(newCORS(deps.Config).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondOK(w, r, HealthResponse{
			Status:  "ok",
			Service: ServiceName,
			Users:   deps.Room.OnlineCount(),
		})
	})

	upload := HandleUpload(deps.Images)
	r.Post("/upload", upload)
	r.Post("/api/upload", upload)

	r.Get("/ws", HandleWebSocket(deps.Room, newUpgrader(deps.Config)))

	if deps.Config.StorageBackend == configs.StorageLocal {
		prefix := deps.Config.UploadURLPrefix + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, uploadedFiles(deps.Config.UploadDir)))
	}

	r.Handle("/*", staticFiles(deps.Config.StaticDir))

	return r
}

func newCORS(cfg *configs.AppConfig) *cors.Cors {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	switch {
	case cfg.IsDevelopment():
		opts.AllowedOrigins = []string{"*"}
	case len(cfg.AllowedOrigins) > 0:
		opts.AllowedOrigins = cfg.AllowedOrigins
	default:
		// An empty list means "*" to rs/cors; without an allow-list only
		// same-origin requests, which need no CORS headers, get through.
		opts.AllowOriginFunc = func(string) bool { return false }
	}

	return cors.New(opts)
}

// newUpgrader accepts same-origin requests, any origin in development and the
// configured allow-list otherwise.
func newUpgrader(cfg *configs.AppConfig) websocket.Upgrader {
	allowedOrigins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" || isSameOrigin(origin, r.Host) {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}

// isSameOrigin reports whether the Origin header names the host the request was sent to.
func isSameOrigin(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

// staticFiles serves the client application from dir.
func staticFiles(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

// uploadedFiles serves single stored images from dir, without directory
// listings. Responses are sandboxed so a stored file can never run script
// on this origin.
func uploadedFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || strings.Contains(name, "/") {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; sandbox")
		files.ServeHTTP(w, r)
	})
}
