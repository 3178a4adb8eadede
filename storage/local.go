package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/eportal/backend/models"
)

// ErrNotFound is returned when a stored file no longer exists.
var ErrNotFound = errors.New("stored file not found")

// ErrTooLarge is returned for uploads over the size limit.
var ErrTooLarge = errors.New("file too large")

// Local keeps uploaded documents in a single directory under randomized
// names. Stored paths are relative to the directory.
type Local struct {
	dir     string
	maxSize int64
}

// NewLocal prepares dir for uploads. maxSize <= 0 disables the per-file limit.
func NewLocal(dir string, maxSize int64) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, maxSize: maxSize}, nil
}

// Save copies an uploaded part to disk and describes it as a document.
func (l *Local) Save(fh *multipart.FileHeader) (models.NewDocument, error) {
	if l.maxSize > 0 && fh.Size > l.maxSize {
		return models.NewDocument{}, ErrTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return models.NewDocument{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	dst, err := os.OpenFile(filepath.Join(l.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return models.NewDocument{}, fmt.Errorf("create file: %w", err)
	}

	limit := l.maxSize
	if limit <= 0 {
		limit = int64(^uint64(0) >> 1)
	}
	written, err := io.Copy(dst, io.LimitReader(src, limit+1))
	closeErr := dst.Close()
	if err == nil && written > limit {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(l.dir, name))
		if errors.Is(err, ErrTooLarge) {
			return models.NewDocument{}, err
		}
		return models.NewDocument{}, fmt.Errorf("copy upload: %w", err)
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return models.NewDocument{
		FileName: filepath.Base(fh.Filename),
		FilePath: name,
		MimeType: mimeType,
	}, nil
}

// Open returns the stored file. Paths escaping the directory and missing
// files both yield ErrNotFound.
func (l *Local) Open(path string) (*os.File, error) {
	full, ok := l.resolve(path)
	if !ok {
		return nil, ErrNotFound
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

// Remove deletes a stored file. Missing files are ignored.
func (l *Local) Remove(path string) error {
	full, ok := l.resolve(path)
	if !ok {
		return nil
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stored file: %w", err)
	}
	return nil
}

func (l *Local) resolve(path string) (string, bool) {
	if path == "" || filepath.IsAbs(path) {
		return "", false
	}
	clean := filepath.Clean(path)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(l.dir, clean), true
}
