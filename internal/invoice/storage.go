package invoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
)

// DocumentStore persists rendered invoice documents and hands back the URL
// recorded on the order. Writes are idempotent: storing the same name twice
// overwrites with identical content.
type DocumentStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// NewDocumentStore returns the filesystem-backed store. The directory is
// expected to be served (or synced) under the configured base URL.
func NewDocumentStore(cfg config.Config, logger *zap.Logger) DocumentStore {
	return &fsStore{
		dir:     cfg.Invoice.Dir,
		baseURL: strings.TrimRight(cfg.Invoice.BaseURL, "/"),
		logger:  logger,
	}
}

type fsStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

func (s *fsStore) Put(_ context.Context, name string, data []byte) (string, error) {
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create invoice dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write invoice: %w", err)
	}
	s.logger.Debug("invoice stored", zap.String("path", path))
	return s.baseURL + "/" + name, nil
}
