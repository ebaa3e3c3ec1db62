package api

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"go.uber.org/zap"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

// Download saves a generated image or video into dir and returns the
// absolute path. Generated asset URLs are public, so no credential is sent.
func (c *Client) Download(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	resp, finalURL, err := c.fetchAsset(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		return "", fmt.Errorf("response is not an image or video: %s", contentType)
	}

	destPath := filepath.Join(dir, generateFilename(finalURL, contentType))

	file, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(destPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	c.logger.Info("asset downloaded", zap.String("path", destPath))

	absPath, err := filepath.Abs(destPath)
	if err != nil {
		return destPath, nil
	}
	return absPath, nil
}

const maxDownloadRedirects = 5

// fetchAsset GETs url and follows redirects itself, since the shared client
// is built without redirect support. It also returns the URL that answered.
func (c *Client) fetchAsset(ctx context.Context, url string) (*fhttp.Response, string, error) {
	target := url
	for hops := 0; ; hops++ {
		req, err := fhttp.NewRequest(fhttp.MethodGet, target, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create request: %w", err)
		}
		req = req.WithContext(ctx)
		req.Header.Set("Accept", "image/*,video/*;q=0.9,*/*;q=0.8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, "", apierrors.NewNetworkError("download", target, err)
		}
		if resp.StatusCode == 200 {
			return resp, target, nil
		}
		_ = resp.Body.Close()

		location := resp.Header.Get("Location")
		if resp.StatusCode < 300 || resp.StatusCode >= 400 || location == "" {
			return nil, "", apierrors.NewAPIError(resp.StatusCode, target, "download failed")
		}
		if hops >= maxDownloadRedirects {
			return nil, "", apierrors.NewAPIError(resp.StatusCode, target, "too many redirects")
		}
		next, err := req.URL.Parse(location)
		if err != nil {
			return nil, "", fmt.Errorf("invalid redirect location %q: %w", location, err)
		}
		c.logger.Debug("following download redirect", zap.String("to", next.String()))
		target = next.String()
	}
}

var extensionPattern = regexp.MustCompile(`\.\w{2,5}$`)

// generateFilename derives a file name from the URL path, falling back to a
// timestamp with an extension taken from the content type.
func generateFilename(url, contentType string) string {
	urlParts := strings.Split(strings.Split(url, "?")[0], "/")
	if last := urlParts[len(urlParts)-1]; extensionPattern.MatchString(last) {
		if safe := sanitizeFilename(last); safe != "" {
			return safe
		}
	}

	ext := ".bin"
	switch {
	case strings.Contains(contentType, "png"):
		ext = ".png"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		ext = ".jpg"
	case strings.Contains(contentType, "webp"):
		ext = ".webp"
	case strings.Contains(contentType, "mp4"):
		ext = ".mp4"
	case strings.Contains(contentType, "webm"):
		ext = ".webm"
	}

	kind := "image"
	if strings.HasPrefix(contentType, "video/") {
		kind = "video"
	}
	return fmt.Sprintf("%s_%s%s", kind, time.Now().Format("20060102_150405"), ext)
}

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// sanitizeFilename removes invalid characters from filenames
func sanitizeFilename(name string) string {
	return strings.TrimSpace(unsafeChars.ReplaceAllString(name, "_"))
}
