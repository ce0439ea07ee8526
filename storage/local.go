package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalLabelStore writes labels below root. The router serves root under
// /storage, so URLs are publicBaseURL + "/storage/" + key.
type LocalLabelStore struct {
	root          string
	publicBaseURL string
}

// NewLocalLabelStore returns a store rooted at root.
func NewLocalLabelStore(root, publicBaseURL string) *LocalLabelStore {
	return &LocalLabelStore{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Root is the directory that must be exposed at /storage.
func (s *LocalLabelStore) Root() string { return s.root }

// Save writes data to root/key, creating parent directories as needed.
func (s *LocalLabelStore) Save(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid label key %q", key)
	}

	path := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create label directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write label %s: %w", key, err)
	}
	return s.publicBaseURL + "/storage/" + filepath.ToSlash(clean), nil
}
