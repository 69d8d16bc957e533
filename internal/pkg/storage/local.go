package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid file path")

// LocalStorage writes proofs below a directory that the router also serves
// under baseURL.
type LocalStorage struct {
	root    string
	baseURL string
}

var _ ProofStore = (*LocalStorage)(nil)

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// resolve cleans key and refuses anything that lands outside root.
func (s *LocalStorage) resolve(key string) (clean, full string, err error) {
	clean = filepath.Clean("/" + key)[1:]
	full = filepath.Join(s.root, clean)
	rel, relErr := filepath.Rel(s.root, full)
	if relErr != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidPath, key)
	}
	return filepath.ToSlash(clean), full, nil
}

// Put writes to a temp file first so a failed copy never leaves a partial proof behind.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	clean, full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return clean, nil
}

func (s *LocalStorage) Remove(ctx context.Context, key string) error {
	_, full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// URL is unsigned; the upload route serves files as-is.
func (s *LocalStorage) URL(key string) (string, error) {
	clean, _, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + clean, nil
}
