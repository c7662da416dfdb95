package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pinboard-backend/internal/models"
)

// Local stores uploads on disk. The HTTP layer serves Dir under /uploads.
type Local struct {
	Dir     string
	BaseURL string // optional absolute prefix, e.g. https://api.example.com
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) Upload(_ context.Context, folder, filename string, data []byte) (*models.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	key := objectKey(folder, filename)
	destPath, err := l.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	// Build accessible URL (served from /uploads)
	url := "/uploads/" + key
	if l.BaseURL != "" {
		url = l.BaseURL + url
	}

	return &models.Image{ID: key, URL: url}, nil
}

func (l *Local) Delete(_ context.Context, id string) error {
	p, err := l.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	log.Printf("[MEDIA] removed %s", id)
	return nil
}

// path resolves an object id inside Dir, rejecting ids that escape it
func (l *Local) path(id string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(id))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid media id %q", id)
	}
	return filepath.Join(l.Dir, clean), nil
}
