package store

import (
	"fmt"
	"path/filepath"

	"wsync-go/internal/config"
	"wsync-go/internal/ws"
)

// NewStoreFromConfig creates a Store implementation based on the database
// config type.
func NewStoreFromConfig(cfg config.DatabaseConfig, userID string) (ws.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		dbPath := filepath.Join(cfg.DataDir, userID+".db")
		return NewSQLiteStore(dbPath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
