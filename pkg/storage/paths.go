package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalResolver resolves pool shard files under a node-local data
// directory, laid out as:
//
//	<base>/pools/<pool-id>/stream-<n>/<kind>.db
type LocalResolver struct {
	basePath string
}

// NewLocalResolver creates a resolver rooted at basePath. The base
// directory is created if it does not exist.
func NewLocalResolver(basePath string) (*LocalResolver, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &LocalResolver{basePath: basePath}, nil
}

// PoolFilePath returns the shard file path for (poolID, kind, streamID),
// creating the containing directory.
func (r *LocalResolver) PoolFilePath(poolID uuid.UUID, kind FileKind, streamID int) (string, error) {
	dir := filepath.Join(r.basePath, "pools", poolID.String(), fmt.Sprintf("stream-%d", streamID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create shard directory: %w", err)
	}
	return filepath.Join(dir, string(kind)+".db"), nil
}

// PoolDir returns the directory holding every shard file of a pool on this
// node.
func (r *LocalResolver) PoolDir(poolID uuid.UUID) string {
	return filepath.Join(r.basePath, "pools", poolID.String())
}
