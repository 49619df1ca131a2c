// Package images stores post cover image uploads on disk.
package images

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devpystudio/backend/pkg"

	log "github.com/sirupsen/logrus"
)

const MaxUploadBytes = 5 << 20

var (
	ErrInvalidImageType = errors.New("invalid image type")
	ErrImageTooLarge    = fmt.Errorf("image too large, max %d bytes", MaxUploadBytes)
	ErrImageNotFound    = errors.New("image not found")
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// DiskStore keeps uploaded images in a single flat directory. Saved
// files get a timestamped name, uploads never overwrite each other.
type DiskStore struct {
	root string
	now  func() time.Time
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	log.Debugf("images dir: %s", root)
	return &DiskStore{
		root: root,
		now:  time.Now,
	}, nil
}

// Save validates and stores the upload, returning the stored filename.
func (s *DiskStore) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrInvalidImageType, ext)
	}
	if header.Size > MaxUploadBytes {
		return "", ErrImageTooLarge
	}

	filename := fmt.Sprintf("post-%d%s", s.now().UnixMilli(), ext)

	dst, err := os.Create(filepath.Join(s.root, filename))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer func() {
		if err := dst.Close(); err != nil {
			log.Errorf("close image file %s: %s", filename, err)
		}
	}()

	if _, err := io.Copy(dst, io.LimitReader(file, MaxUploadBytes)); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	log.Tracef("image saved: %s [%d bytes]", filename, header.Size)

	return filename, nil
}

// Path resolves a stored filename to its on-disk path. Only plain
// filenames are accepted, anything resembling a path is rejected.
func (s *DiskStore) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", ErrImageNotFound
	}

	path := filepath.Join(s.root, filename)
	if exists, err := pkg.PathExists(path, false); err != nil || !exists {
		return "", ErrImageNotFound
	}

	return path, nil
}
