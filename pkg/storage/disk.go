// Package storage holds the disks offloaded product images are written to.
//
// Two drivers are available:
//   - "local": the local filesystem, served back under /storage/*
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	disk, _ := storage.Open(ctx, config.ImageDisk())
//	images := storage.NewImageStore(disk)
//	ref, _ := images.Store(ctx, product.Image)
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/farm2home/farm2home/config"
)

// ErrNotFound is returned by Get when nothing is stored at path.
var ErrNotFound = errors.New("storage: file not found")

// Disk is the filesystem driver interface.
type Disk interface {
	// Put writes content to path, creating parent directories as needed.
	Put(ctx context.Context, path string, content []byte, contentType string) error

	// Get returns the full content of the file at path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) bool

	// Delete removes a file. Returns nil if the file did not exist.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for path.
	URL(path string) string
}

// Open builds the disk named by IMAGE_DISK. "inline" returns a nil Disk:
// images stay on the product document.
func Open(ctx context.Context, name string) (Disk, error) {
	switch name {
	case "", "inline":
		return nil, nil
	case "local":
		d, err := NewLocalDisk(config.StorageLocalRoot(), config.StorageURL())
		if err != nil {
			return nil, err
		}
		return d, nil
	case "s3":
		d, err := NewS3Disk(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("storage: unknown disk %q", name)
	}
}
