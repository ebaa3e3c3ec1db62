package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Backend kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindFile   = "file"
	KindMemory = "memory"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "glmchat.db"

// Open builds a Gateway for the named backend kind rooted at dataDir.
func Open(kind, dataDir string, logger *zap.Logger) (*Gateway, error) {
	var (
		backend Backend
		err     error
	)

	switch kind {
	case KindSQLite, "":
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		backend, err = NewSQLiteBackend(filepath.Join(dataDir, DatabaseFile))
	case KindFile:
		backend, err = NewFileBackend(filepath.Join(dataDir, "store"))
	case KindMemory:
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
	if err != nil {
		return nil, err
	}

	return NewGateway(backend, logger), nil
}
