package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrBadDataURL is returned when an image looks like a data URL but cannot
// be decoded.
var ErrBadDataURL = errors.New("storage: malformed data URL")

const imagePrefix = "products/"

var imageExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// ImageStore moves base64 data-URL product images onto a Disk. With a nil
// disk every reference is kept as given.
type ImageStore struct {
	disk Disk
}

func NewImageStore(disk Disk) *ImageStore {
	return &ImageStore{disk: disk}
}

// Offloads reports whether images are written to a disk.
func (s *ImageStore) Offloads() bool { return s != nil && s.disk != nil }

// Store returns the reference to keep on the product. Data URLs are decoded,
// written under products/<uuid><ext> and replaced by the disk URL; any other
// value is returned unchanged.
func (s *ImageStore) Store(ctx context.Context, image string) (string, error) {
	if !s.Offloads() || !strings.HasPrefix(image, "data:") {
		return image, nil
	}

	contentType, data, err := decodeDataURL(image)
	if err != nil {
		return "", err
	}

	key := imagePrefix + uuid.NewString() + imageExtensions[contentType]
	if err := s.disk.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("storage: offload image: %w", err)
	}
	return s.disk.URL(key), nil
}

// Release deletes an image previously written by Store. References that do
// not point at the disk are ignored.
func (s *ImageStore) Release(ctx context.Context, ref string) error {
	if !s.Offloads() || ref == "" {
		return nil
	}
	base := s.disk.URL(imagePrefix)
	if !strings.HasPrefix(ref, base) {
		return nil
	}
	return s.disk.Delete(ctx, imagePrefix+strings.TrimPrefix(ref, base))
}

// decodeDataURL parses "data:<mime>;base64,<payload>".
func decodeDataURL(raw string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return "", nil, ErrBadDataURL
	}
	contentType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrBadDataURL)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := imageExtensions[contentType]; !ok {
		return "", nil, fmt.Errorf("%w: unsupported content type %q", ErrBadDataURL, contentType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return contentType, data, nil
}
