// Package filestore keeps artifact files on local disk under
// <root>/<family>/<version>/<original filename>.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/ports/output"
)

// DiskStore implements ports.ArtifactStore on the local filesystem.
type DiskStore struct {
	root string
	base string
}

var _ ports.ArtifactStore = (*DiskStore)(nil)

// NewArtifactStore creates root if needed. Stored paths are reported
// relative to root's parent, so root and the metadata file must move together.
func NewArtifactStore(root string) (*DiskStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DiskStore{root: abs, base: filepath.Dir(abs)}, nil
}

// Root returns the absolute storage root.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Exists(src string) bool {
	info, err := os.Stat(src)
	return err == nil && info.Mode().IsRegular()
}

func (s *DiskStore) Store(ctx context.Context, family, version, src string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, src)
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", domain.ErrArtifactNotFound, src)
	}

	dir := filepath.Join(s.root, family, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create version directory: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if err := copyFile(src, dst, info); err != nil {
		return "", fmt.Errorf("copy artifact: %w", err)
	}

	rel, err := filepath.Rel(s.base, dst)
	if err != nil {
		return "", fmt.Errorf("relativize artifact path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Resolve returns the absolute location of a stored relative path.
func (s *DiskStore) Resolve(relPath string) string {
	return filepath.Join(s.base, filepath.FromSlash(relPath))
}

func (s *DiskStore) Verify(relPath string) bool {
	if relPath == "" {
		return false
	}
	_, err := os.Stat(s.Resolve(relPath))
	return err == nil
}

// copyFile writes to a temporary file next to dst and renames it into place,
// then carries over mode and modification time.
func copyFile(src, dst string, info os.FileInfo) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return err
	}

	if chmodErr := os.Chmod(dst, info.Mode().Perm()); chmodErr != nil {
		log.WithError(chmodErr).WithField("path", dst).Debug("preserve artifact mode")
	}
	if chtErr := os.Chtimes(dst, info.ModTime(), info.ModTime()); chtErr != nil {
		log.WithError(chtErr).WithField("path", dst).Debug("preserve artifact mtime")
	}
	return nil
}
