package remote

import (
	"context"
	"fmt"

	"wsync-go/internal/config"
	"wsync-go/internal/ws"
)

// NewRemoteFromConfig creates a RemoteStore implementation based on the
// remote config type.
func NewRemoteFromConfig(ctx context.Context, cfg config.RemoteConfig) (ws.RemoteStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem remote requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown remote type: %s", cfg.Type)
	}
}
