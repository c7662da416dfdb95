package media

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"pinboard-backend/internal/models"

	"github.com/google/uuid"
)

// Folders used for uploaded objects
const (
	FolderPins    = "pinboard/pins"
	FolderAvatars = "pinboard/avatars"
)

var ErrEmptyUpload = errors.New("media: empty upload")

// Store persists uploaded images and hands back a stable reference.
type Store interface {
	// Upload stores data under folder and returns the external id and public URL
	Upload(ctx context.Context, folder, filename string, data []byte) (*models.Image, error)
	// Delete removes the object with the given external id
	Delete(ctx context.Context, id string) error
}

// objectKey builds a unique key inside folder, keeping the uploaded file's extension
func objectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return folder + "/" + uuid.New().String() + ext
}

func contentType(data []byte) string {
	return http.DetectContentType(data)
}
