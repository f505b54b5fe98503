// Package http serves the public REST API.
package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/papervault/internal/logging"
	"github.com/dmitrijs2005/papervault/internal/server/config"
	"github.com/dmitrijs2005/papervault/internal/server/documents"
)

// Server wraps the Fiber application and its lifecycle.
type Server struct {
	app    *fiber.App
	addr   string
	logger logging.Logger
}

func NewServer(cfg *config.Config, service *documents.Service, logger logging.Logger) *Server {
	app := fiber.New(fiber.Config{
		// Leave headroom above the document ceiling for multipart framing.
		BodyLimit:             int(cfg.MaxFileSize) + 1024*1024,
		DisableStartupMessage: true,
	})

	handler := NewHandler(service, logger)
	registerRoutes(app, handler, []byte(cfg.SecretKey))

	return &Server{app: app, addr: cfg.EndpointAddr, logger: logger}
}

func registerRoutes(app *fiber.App, h *Handler, secretKey []byte) {
	api := app.Group("/api")
	api.Get("/health", h.Health)

	authed := api.Use(authRequired(secretKey))
	authed.Post("/documents/upload", h.Upload)
	authed.Post("/documents/presigned-upload", h.PresignUpload)
	authed.Post("/documents/complete-upload", h.CompleteUpload)
	authed.Get("/documents/search", h.Search)
	authed.Get("/documents/status", h.Status)
	authed.Get("/documents", h.List)
	authed.Get("/documents/:id", h.Get)
	authed.Delete("/documents/:id", h.Delete)
}

// Run serves requests until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info(ctx, "shutting down http server")
		return s.app.ShutdownWithTimeout(10 * time.Second)
	}
}

// App exposes the underlying Fiber application for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
