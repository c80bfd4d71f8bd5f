// Package images resolves component image sources (URL, filesystem path or
// inline base64) into decoded bitmaps, subject to an allowlist policy for
// external sources.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AllowlistMode governs whether external URLs and paths must be
// pre-approved before fetching.
type AllowlistMode string

const (
	AllowlistStrict     AllowlistMode = "strict"
	AllowlistPermissive AllowlistMode = "permissive"
)

// maxImageBytes caps fetched image payloads.
const maxImageBytes = 4 << 20

// NotAllowedError reports a source rejected by the strict allowlist.
type NotAllowedError struct {
	Source string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("image source not allowlisted: %s", e.Source)
}

// Resolver fetches and decodes images.
type Resolver struct {
	client          *http.Client
	allowedPrefixes []string
	logger          *zap.Logger
}

// NewResolver creates an image resolver. allowedPrefixes are the URL/path
// prefixes accepted in strict mode; inline base64 data is always accepted.
func NewResolver(allowedPrefixes []string, logger *zap.Logger) *Resolver {
	return &Resolver{
		client:          &http.Client{Timeout: 10 * time.Second},
		allowedPrefixes: allowedPrefixes,
		logger:          logger,
	}
}

// Resolve decodes the image behind a source. An empty source means there is
// nothing to draw and returns (nil, nil).
func (r *Resolver) Resolve(ctx context.Context, source string, mode AllowlistMode) (image.Image, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}

	switch {
	case strings.HasPrefix(source, "data:"):
		return decodeDataURI(source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		if mode == AllowlistStrict && !r.allowed(source) {
			return nil, &NotAllowedError{Source: source}
		}
		return r.fetchURL(ctx, source)
	default:
		if looksLikeBase64(source) {
			return decodeBase64(source)
		}
		if mode == AllowlistStrict && !r.allowed(source) {
			return nil, &NotAllowedError{Source: source}
		}
		return decodeFile(source)
	}
}

func (r *Resolver) allowed(source string) bool {
	for _, prefix := range r.allowedPrefixes {
		if prefix != "" && strings.HasPrefix(source, prefix) {
			return true
		}
	}
	return false
}

func (r *Resolver) fetchURL(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch %s returned %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", url, err)
	}
	return decode(data)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image file %s: %w", path, err)
	}
	return decode(data)
}

func decodeDataURI(uri string) (image.Image, error) {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	return decodeBase64(payload)
}

func decodeBase64(payload string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// looksLikeBase64 distinguishes inline payloads from filesystem paths.
// "/" is a legal base64 character, so the discriminator is the extension
// dot a real image path carries, plus a minimum payload length.
func looksLikeBase64(s string) bool {
	if len(s) < 64 || strings.ContainsRune(s, '.') {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
