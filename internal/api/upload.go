package api

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/models"
)

// SupportedImageTypes returns the MIME types accepted for inline images.
func SupportedImageTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
	}
}

// IsSupportedImageType reports whether mimeType can be inlined.
func IsSupportedImageType(mimeType string) bool {
	for _, t := range SupportedImageTypes() {
		if mimeType == t {
			return true
		}
	}
	return false
}

// ImageMIMEType returns the MIME type for a file name, or "" when the
// extension is not an image.
func ImageMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png", ".gif", ".webp", ".bmp":
		return "image/" + ext[1:]
	}
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
		return mt
	}
	return ""
}

// InlineImage reads an image file and returns it as a base64 data URL. The
// size ceiling is checked before the file is read.
func InlineImage(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > models.MaxImageSize {
		return "", apierrors.NewPayloadTooLargeError(filepath.Base(path), info.Size(), models.MaxImageSize)
	}

	mimeType := ImageMIMEType(path)
	if !IsSupportedImageType(mimeType) {
		return "", fmt.Errorf("unsupported image type for %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
