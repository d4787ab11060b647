// Package mcp provides an MCP (Model Context Protocol) server exposing the
// lubebot corpus search and query classifier as tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/ecofes/lubebot/api/search"
	"github.com/ecofes/lubebot/pkg/classifier"
	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/utils"
)

type Config struct {
	// Index answers semantic searches over the corpus
	Index apisearch.Index

	// Classifier scores queries
	Classifier *classifier.Classifier

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the search and classify tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
		logger: logger.Component(c.Logger, "mcp"),
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "lubebot",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Index == nil {
			return nil, errors.New("search index is required")
		}
		if c.Classifier == nil {
			return nil, errors.New("classifier is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        classifyToolName,
			Description: classifyDescription,
		}, s.handleClassify)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
