// Package api provides the lubebot HTTP API: search, classification, answers,
// lead capture and index management.
package api

import (
	"context"

	apisearch "github.com/ecofes/lubebot/api/search"
	"github.com/ecofes/lubebot/pkg/classifier"
	"github.com/ecofes/lubebot/pkg/retrieval"
	"github.com/ecofes/lubebot/pkg/router"
	"github.com/ecofes/lubebot/pkg/storage"
	"github.com/ecofes/lubebot/pkg/worker"
)

// Index is the retrieval engine as seen by the API.
type Index interface {
	apisearch.Index
	Stats(ctx context.Context) (*retrieval.Stats, error)
	Rebuild(ctx context.Context) (*retrieval.BuildReport, error)
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Index serves search, stats and rebuild.
	Index Index

	// Classifier scores queries for /v1/classify.
	Classifier *classifier.Classifier

	// Router answers /v1/ask.
	Router *router.Router

	// Storage is the optional record store. Without it lead capture and
	// query history return 503.
	Storage storage.Driver

	// Pool records answered queries asynchronously. Optional.
	Pool *worker.Pool

	// DisableMCP leaves /mcp unmounted.
	DisableMCP bool
}
