package api

import (
	"net/http"

	"github.com/BAPONBARMON/file-server/internal/config"
	"github.com/BAPONBARMON/file-server/internal/files"
	"github.com/BAPONBARMON/file-server/internal/metrics"
	"github.com/BAPONBARMON/file-server/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/BAPONBARMON/file-server/docs"
)

type Server struct {
	config  *config.Config
	manager *files.Manager
	wsHub   *websocket.Hub
}

func NewServer(cfg *config.Config, manager *files.Manager, wsHub *websocket.Hub) *Server {
	return &Server{
		config:  cfg,
		manager: manager,
		wsHub:   wsHub,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/ws", s.ServeWsHandler)
	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/files", s.ListEntriesHandler)
		r.Post("/files", s.UploadFilesHandler)
		r.Get("/files/{entryId}", s.DownloadFileHandler)
		r.Delete("/files/{entryId}", s.DeleteEntryHandler)
		r.Post("/folders", s.CreateFolderHandler)
	})

	return r
}
