// Package storage persists uploaded images and returns the path clients use
// to fetch them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klimatholod/store-backend/internal/apperror"
)

// Store saves uploaded files. Remove takes a path returned by Save and
// ignores paths the store does not own.
type Store interface {
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, p string) error
}

// Discard removes files whose database write failed. Errors are dropped so
// the caller can return the original one.
func Discard(ctx context.Context, s Store, paths ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range paths {
		_ = s.Remove(ctx, p)
	}
}

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

// DiskStore writes files under Dir and serves them below PublicPrefix
// (mounted with app.Static in main).
type DiskStore struct {
	Dir          string
	PublicPrefix string
	MaxBytes     int64
}

func NewDiskStore(dir string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{Dir: dir, PublicPrefix: "/uploads", MaxBytes: maxBytes}, nil
}

func (s *DiskStore) Save(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	name, err := objectName(fh, s.MaxBytes)
	if err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return path.Join(s.PublicPrefix, name), nil
}

func (s *DiskStore) Remove(_ context.Context, p string) error {
	if !strings.HasPrefix(p, s.PublicPrefix+"/") {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, path.Base(p)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// objectName checks size and extension and builds a collision-free name
// that keeps the original extension.
func objectName(fh *multipart.FileHeader, maxBytes int64) (string, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", apperror.Validation(fmt.Sprintf("file %s exceeds %d bytes", fh.Filename, maxBytes))
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		return "", apperror.Validation(fmt.Sprintf("file %s is not an image", fh.Filename))
	}
	return uuid.NewString() + ext, nil
}
