// Package storageutils builds the configured record store.
package storageutils

import (
	"context"
	"fmt"

	"github.com/ecofes/lubebot/pkg/storage"
	"github.com/ecofes/lubebot/pkg/storage/inmemory"
	"github.com/ecofes/lubebot/pkg/storage/postgres"
	"github.com/ecofes/lubebot/pkg/storage/sqlite"
)

type NewStorageDriverOpts struct {
	ProviderType string
	SQLitePath   string
	PostgresDSN  string
}

func NewStorageDriver(ctx context.Context, o *NewStorageDriverOpts) (storage.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "":
		if o.SQLitePath == "" {
			return nil, fmt.Errorf("storage provider sqlite requires a database path")
		}
		return sqlite.NewDriver(ctx, o.SQLitePath)
	case "postgres", "postgresql":
		if o.PostgresDSN == "" {
			return nil, fmt.Errorf("storage provider postgres requires a DSN")
		}
		return postgres.NewDriver(ctx, o.PostgresDSN)
	case "memory", "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
