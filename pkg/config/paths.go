package config

import "path/filepath"

const (
	indexFile   = "index.sqlite"
	recordsFile = "records.sqlite"
)

// FillDataPaths points the on-disk sqlite index and record store into dir
// when they are in use and no explicit path was configured.
func (c *Config) FillDataPaths(dir string) {
	if dir == "" {
		return
	}

	if c.VectorStore.Provider == "sqlite" && c.VectorStore.Target == "" {
		c.VectorStore.Target = filepath.Join(dir, indexFile)
	}

	if c.Storage.Provider == "sqlite" && c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(dir, recordsFile)
	}
}
