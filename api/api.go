package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/ecofes/lubebot/api/mcp"
	"github.com/ecofes/lubebot/pkg/logger"
)

// Server is the API server for the lubebot pipeline.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new API server.
func NewServer(config Config, log *slog.Logger) (*Server, error) {
	if config.Index == nil {
		return nil, errors.New("search index is required")
	}
	if config.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if config.Router == nil {
		return nil, errors.New("router is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger.Component(log, "api"),
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/search", s.handleSearchEndpoint)
	v1.Post("/classify", s.handleClassify)
	v1.Post("/ask", s.handleAsk)
	v1.Post("/leads", s.handleCreateLead)
	v1.Get("/leads", s.handleListLeads)
	v1.Get("/queries", s.handleListQueries)
	v1.Get("/index/stats", s.handleIndexStats)
	v1.Post("/index/rebuild", s.handleIndexRebuild)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Index:      config.Index,
			Classifier: config.Classifier,
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
