package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrNotImage is returned for uploads that do not decode as a supported image
var ErrNotImage = errors.New("media: not a supported image")

// imageExtensions maps the formats registered by imaging to file extensions
var imageExtensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"bmp":  ".bmp",
	"tiff": ".tiff",
}

// DetectImage checks that data is a JPEG, PNG, GIF, BMP or TIFF image and
// returns the extension of the detected format. The client's filename is not trusted.
func DetectImage(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotImage
	}
	ext, ok := imageExtensions[format]
	if !ok {
		return "", ErrNotImage
	}
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		return "", ErrNotImage
	}
	return ext, nil
}

// AvatarSize is the edge length of profile pictures in pixels
const AvatarSize = 150

// PrepareAvatar decodes an uploaded image, crops it to a centered AvatarSize
// square and re-encodes it as JPEG. The returned filename carries the new extension.
func PrepareAvatar(data []byte) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("unknown image format: %w", err)
	}

	dst := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "avatar.jpg", nil
}
