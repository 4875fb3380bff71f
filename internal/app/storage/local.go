package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"livechat/internal/pkg/logx"
)

// LocalStore writes images into a directory that the router serves under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore creates dir when needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("storage: local directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload dir: %w", err)
	}

	return &LocalStore{
		Dir:       dir,
		URLPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// Save creates the file exclusively and removes it again if anything fails.
func (s *LocalStore) Save(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("storage: invalid object name %q", name)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrObjectExists
		}
		return "", fmt.Errorf("storage: create %s: %w", name, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		s.discard(f, path)
		return "", fmt.Errorf("storage: write %s: %w", name, err)
	}

	if err := f.Sync(); err != nil {
		s.discard(f, path)
		return "", fmt.Errorf("storage: sync %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("storage: close %s: %w", name, err)
	}

	return s.URLPrefix + "/" + name, nil
}

// Owns accepts "<prefix>/<name>" with a single, non-hidden path element.
func (s *LocalStore) Owns(url string) bool {
	name, ok := strings.CutPrefix(url, s.URLPrefix+"/")
	if !ok || name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, "/\\?#")
}

func (s *LocalStore) discard(f *os.File, path string) {
	_ = f.Close()
	if err := os.Remove(path); err != nil {
		logx.Error(err, "Failed to remove partial upload", "path", path)
	}
}
