package task

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	nanoid "github.com/jaevor/go-nanoid"
)

// AttachmentBucket is the fs-jetstream bucket holding attachment bytes.
const AttachmentBucket = "attachments"

// BlobInfo describes stored attachment bytes.
type BlobInfo struct {
	Key    string
	Size   int64
	Digest string
}

// AttachmentStore keeps attachment bytes outside the relational store.
type AttachmentStore interface {
	Put(ctx context.Context, filename string, data []byte, contentType string) (BlobInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// bucketStore implements AttachmentStore on an fs-jetstream bucket.
type bucketStore struct {
	bucket fsjetstream.FileStoragePort
	newID  func() string
}

// NewBucketStore creates an AttachmentStore over bucket. Keys are a nanoid
// plus the lowercased extension; the client filename is kept as a header.
func NewBucketStore(bucket fsjetstream.FileStoragePort) (AttachmentStore, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return &bucketStore{bucket: bucket, newID: gen}, nil
}

func (s *bucketStore) Put(ctx context.Context, filename string, data []byte, contentType string) (BlobInfo, error) {
	key := s.newID() + safeExt(filename)

	info, err := s.bucket.Put(ctx, key, data,
		fsjetstream.WithDescription("Task attachment"),
		fsjetstream.WithHeaders(map[string]string{
			"Content-Type":  contentType,
			"Original-Name": sanitizeFilename(filename),
			"Uploaded-At":   time.Now().Format(time.RFC3339),
		}),
	)
	if err != nil {
		return BlobInfo{}, fmt.Errorf("failed to store attachment: %w", err)
	}

	return BlobInfo{Key: key, Size: int64(info.Size), Digest: info.Digest}, nil
}

func (s *bucketStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := s.bucket.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment %s: %w", key, err)
	}
	return data, nil
}

func (s *bucketStore) Delete(_ context.Context, key string) error {
	if err := s.bucket.Delete(key); err != nil {
		return fmt.Errorf("failed to delete attachment %s: %w", key, err)
	}
	return nil
}

// sanitizeFilename strips directories and separators from a client filename.
func sanitizeFilename(filename string) string {
	clean := filepath.Base(filepath.Clean(filename))
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	if clean == "." || clean == ".." || clean == "" {
		return "unnamed"
	}
	return clean
}

// safeExt keeps a short alphanumeric extension of filename, lowercased.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(sanitizeFilename(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
