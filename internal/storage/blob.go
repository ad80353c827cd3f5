// Package storage persists attachment bytes and returns retrievable URLs.
package storage

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// BlobStore stores attachment bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// FileStore writes blobs to an afero filesystem rooted at baseDir and
// serves them under publicBaseURL.
type FileStore struct {
	fs            afero.Fs
	baseDir       string
	publicBaseURL string
}

// NewFileStore creates a store on fs.
func NewFileStore(fs afero.Fs, baseDir, publicBaseURL string) *FileStore {
	return &FileStore{
		fs:            fs,
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// NewOSFileStore creates a store on the local disk.
func NewOSFileStore(baseDir, publicBaseURL string) *FileStore {
	return NewFileStore(afero.NewOsFs(), baseDir, publicBaseURL)
}

// Put writes data under key and returns its public URL.
func (s *FileStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "upload cancelled")
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to create upload directory")
	}
	if err := afero.WriteFile(s.fs, full, data, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to write attachment")
	}
	return s.publicBaseURL + "/" + clean, nil
}

// Handler serves stored blobs read-only.
func (s *FileStore) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(afero.NewBasePathFs(afero.NewReadOnlyFs(s.fs), s.baseDir)).Dir("/"))
}

// Exists reports whether key has been stored.
func (s *FileStore) Exists(key string) (bool, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.fs.Stat(filepath.Join(s.baseDir, filepath.FromSlash(clean)))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", errors.InvalidInput("key", "storage key is empty")
	}
	return clean, nil
}
