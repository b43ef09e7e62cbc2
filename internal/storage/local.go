package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/HammerMeetNail/giftcircle/internal/models"
)

// LocalBackend keeps photos on disk. Locators are bare file names served
// under urlPrefix.
type LocalBackend struct {
	dir       string
	urlPrefix string
}

func NewLocalBackend(dir, urlPrefix string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalBackend{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (b *LocalBackend) Kind() models.PhotoKind {
	return models.PhotoKindLocal
}

func (b *LocalBackend) Dir() string {
	return b.dir
}

func (b *LocalBackend) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	path, err := b.path(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return name, nil
}

func (b *LocalBackend) Delete(ctx context.Context, locator string) error {
	path, err := b.path(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", locator, err)
	}
	return nil
}

func (b *LocalBackend) URL(locator string) string {
	return b.urlPrefix + "/" + locator
}

// path rejects anything that is not a plain file name.
func (b *LocalBackend) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(b.dir, name), nil
}
